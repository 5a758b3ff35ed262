package dto

type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
}

// UploadResponse тело ответа на прием байтов по одноразовому адресу
type UploadResponse struct {
	StorageID string `json:"storageId"`
}

type RecordFileRequest struct {
	StorageID string `json:"storage_id" validate:"required"`
	FileName  string `json:"file_name" validate:"required,max=255"`
	FileType  string `json:"file_type" validate:"required"`
}

type RecordFileResponse struct {
	URL string `json:"url"`
}
