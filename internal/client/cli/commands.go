package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/scankeeper/internal/client/models"
)

const timeLayout = "2006-01-02 15:04:05"

func (a *App) Scan(ctx context.Context, payload, symbology string) error {
	rec, err := a.capture.OnScan(ctx, payload, symbology)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Fprintln(a.out, "Duplicate scan ignored")
		return nil
	}
	fmt.Fprintf(a.out, "Saved %s (%s)\n", rec.ID, rec.Symbology)
	return nil
}

func (a *App) List(ctx context.Context) error {
	recs, err := a.records.ListVisible(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No records")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTYPE\tCAPTURED\tPAYLOAD")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, status(r), r.Symbology, r.CreatedAt.Local().Format(timeLayout), r.Payload)
	}
	return tw.Flush()
}

func status(r models.Record) string {
	switch {
	case r.Rejected:
		return "rejected"
	case r.SyncState == models.StateSynced:
		return "synced"
	default:
		return "pending"
	}
}

func (a *App) Remote(_ context.Context) error {
	view, at := a.engine.RemoteView()
	if at.IsZero() {
		fmt.Fprintln(a.out, "Server view not fetched yet (run sync)")
		return nil
	}

	fmt.Fprintf(a.out, "Server view as of %s (%s ago)\n",
		at.Local().Format(timeLayout), time.Since(at).Round(time.Second))
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REMOTE ID\tTYPE\tDATA")
	for _, r := range view {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Type, r.Data)
	}
	return tw.Flush()
}

func (a *App) Show(ctx context.Context, id string) error {
	r, err := a.records.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}

	fmt.Fprintf(a.out, "ID:        %s\n", r.ID)
	fmt.Fprintf(a.out, "Payload:   %s\n", r.Payload)
	fmt.Fprintf(a.out, "Type:      %s\n", r.Symbology)
	fmt.Fprintf(a.out, "Captured:  %s\n", r.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(a.out, "State:     %s\n", r.SyncState)
	if r.RemoteID != "" {
		fmt.Fprintf(a.out, "Remote ID: %s\n", r.RemoteID)
	}
	if r.Attempts > 0 {
		fmt.Fprintf(a.out, "Attempts:  %d\n", r.Attempts)
	}
	if r.LastError != "" {
		fmt.Fprintf(a.out, "Error:     %s\n", r.LastError)
	}
	if r.Rejected {
		fmt.Fprintln(a.out, "Rejected by server; use 'resync' to retry")
	}
	return nil
}

// Copy prints the bare payload so it can be piped or selected.
func (a *App) Copy(ctx context.Context, id string) error {
	r, err := a.records.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	if !r.Visible() {
		return fmt.Errorf("record %s is being deleted", id)
	}
	fmt.Fprintln(a.out, r.Payload)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.capture.OnDeleteRequest(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	return nil
}

func (a *App) Resync(ctx context.Context, id string) error {
	if err := a.capture.Resync(ctx, id); err != nil {
		return fmt.Errorf("resync %s: %w", id, err)
	}
	fmt.Fprintf(a.out, "Resync of %s started\n", id)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	report := a.engine.FullSync(ctx)
	fmt.Fprintf(a.out, "Pushed %d, deleted %d, failed %d, awaiting resync %d\n",
		report.Pushed, report.Deleted, report.Failed, report.Skipped)
	for _, e := range report.Errors {
		fmt.Fprintf(a.out, "  %s: %v\n", e.ID, e.Err)
	}
	return report.Err()
}
