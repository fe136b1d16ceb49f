package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-aggregator/internal/db"
	"github.com/jonathan/job-aggregator/internal/observability"
	"github.com/jonathan/job-aggregator/internal/syncer"
	"github.com/jonathan/job-aggregator/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status <id> [status]",
	Short: "Show or change the status, priority and notes of a stored offer",
	Long: fmt.Sprintf(`Without a status and flags, prints the offer and its history.
Otherwise applies the change and records it in the history.

Statuses: %s`, strings.Join(statusNames(), ", ")),
	Args: cobra.RangeArgs(1, 2),
	RunE: runStatus,
}

var (
	statusPriority int
	statusNotes    string
)

func init() {
	statusCmd.Flags().IntVarP(&statusPriority, "priority", "p", 0, "Set the priority")
	statusCmd.Flags().StringVarP(&statusNotes, "notes", "n", "", "Replace the notes")

	rootCmd.AddCommand(statusCmd)
}

func statusNames() []string {
	out := make([]string, 0, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		out = append(out, string(s))
	}
	return out
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	id, err := resolveID(ctx, store, args[0])
	if err != nil {
		return err
	}

	var patch syncer.Patch
	if len(args) == 2 {
		st, err := types.ParseStatus(args[1])
		if err != nil {
			return err
		}
		patch.Status = &st
	}
	if cmd.Flags().Changed("priority") {
		patch.Priority = &statusPriority
	}
	if cmd.Flags().Changed("notes") {
		patch.Notes = &statusNotes
	}

	var rec *types.StoredRecord
	if patch.Status == nil && patch.Priority == nil && patch.Notes == nil {
		rec, err = store.FindByID(ctx, id)
		if err == nil && rec == nil {
			err = syncer.ErrRecordNotFound
		}
	} else {
		rec, err = a.engine(ctx, store).Annotate(ctx, id, patch)
	}
	var auditErr *syncer.AuditError
	if errors.As(err, &auditErr) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", auditErr)
		err = nil
	}
	if err != nil {
		return err
	}

	p := observability.NewPrinter(cmd.OutOrStdout())
	p.PrintStoredRecords([]types.StoredRecord{*rec})
	history, err := store.ListAudit(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	p.PrintAudit(history)
	return nil
}

// resolveID accepts a full UUID or a unique prefix of one as printed by list.
func resolveID(ctx context.Context, store db.Store, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	ref = strings.ToLower(strings.TrimSpace(ref))
	if len(ref) < 4 {
		return uuid.Nil, fmt.Errorf("id prefix %q is too short", ref)
	}
	all, err := store.List(ctx, db.ListFilter{})
	if err != nil {
		return uuid.Nil, err
	}
	var found []uuid.UUID
	for _, rec := range all {
		if strings.HasPrefix(rec.ID.String(), ref) {
			found = append(found, rec.ID)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("%w: %s", syncer.ErrRecordNotFound, ref)
	case 1:
		return found[0], nil
	}
	return uuid.Nil, fmt.Errorf("id prefix %q is ambiguous", ref)
}
