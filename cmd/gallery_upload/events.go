package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"school_gallery/internal/domain/models"
	jwtlib "school_gallery/internal/lib/jwt"
	"school_gallery/internal/transport/http/dto"
	"school_gallery/internal/upload"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newTokenCommand(c *cli) *cobra.Command {
	var (
		name   string
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token (needs the server secret)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("TOKEN_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or TOKEN_SECRET is required")
			}
			token, err := jwtlib.NewToken(name, secret, ttl)
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}
			fmt.Fprintln(c.out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "admin display name, recorded as uploaded_by")
	cmd.Flags().StringVar(&secret, "secret", "", "server token secret (env TOKEN_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newEventsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and create gallery events",
	}

	var (
		status  string
		years   []string
		page    int
		perPage int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client.ListEvents(cmd.Context(), models.EventFilter{
				Status:        status,
				AcademicYears: years,
				Page:          page,
				PerPage:       perPage,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, bold("ID\tDATE\tYEAR\tPUBLISHED\tTITLE"))
			for _, e := range res.Events {
				published := gray("no")
				if e.IsPublished {
					published = green("yes")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date.Format(time.DateOnly), e.AcademicYear, published, e.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, gray(fmt.Sprintf("page %d, %d of %d events", res.Page, len(res.Events), res.TotalCount)))
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", models.EventStatusAll, "all, published or draft")
	list.Flags().StringSliceVar(&years, "year", nil, "academic year filter (repeatable)")
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&perPage, "per-page", 20, "events per page")

	var (
		req  dto.CreateEventRequest
		date string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.Parse(time.DateOnly, date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			req.Date = d

			id, err := c.client.CreateEvent(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, id)
			return nil
		},
	}
	create.Flags().StringVar(&req.Title, "title", "", "event title")
	create.Flags().StringVar(&req.Description, "description", "", "event description")
	create.Flags().StringVar(&date, "date", "", "event date, YYYY-MM-DD")
	create.Flags().StringVar(&req.AcademicYear, "year", "", "academic year, e.g. 2024-2025")
	create.Flags().BoolVar(&req.IsPublished, "publish", false, "publish immediately")
	for _, f := range []string{"title", "description", "date", "year"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(list, create)
	return cmd
}

func newDeleteEventCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-event <event-id>",
		Short: "Delete an event together with all of its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("event id %q: %w", args[0], err)
			}

			res, err := upload.DeleteEvent(cmd.Context(), c.client, id)
			if err != nil {
				return fmt.Errorf("event kept, %d images removed before the failure: %w", res.ImagesDeleted, err)
			}

			if res.AlreadyGone {
				fmt.Fprintln(c.out, yellow(fmt.Sprintf("event was already deleted; %d leftover images removed", res.ImagesDeleted)))
				return nil
			}
			fmt.Fprintln(c.out, green(fmt.Sprintf("event deleted with %d images", res.ImagesDeleted)))
			return nil
		},
	}
}
