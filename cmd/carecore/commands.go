package main

import (
	"carecore/internal/cascade"
	"carecore/pkg/domain"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRecipientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "recipients", Short: "Inspect and delete recipients"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the caregiver's recipients",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.listRecipients()
			},
		},
		&cobra.Command{
			Use:   "delete ID...",
			Short: "Delete recipients with their collections, sets, contacts and assets",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, ids []string) error {
				rep, err := a.svc.DeleteRecipients(cmd.Context(), ids)
				return a.printReport(rep, err)
			},
		},
	)
	return cmd
}

func newCollectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "collections", Short: "Delete collections"}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID...",
		Short: "Delete collections with their sets and assets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, ids []string) error {
			rep, err := a.svc.DeleteCollections(cmd.Context(), ids)
			return a.printReport(rep, err)
		},
	})
	return cmd
}

func newPlanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "plan", Short: "Print what a delete would remove without removing it"}
	cmd.AddCommand(
		&cobra.Command{
			Use:  "recipients ID...",
			Args: cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, ids []string) error {
				plan, err := a.svc.PlanRecipientDeletion(ids)
				if err != nil {
					return err
				}
				return a.printJSON(plan)
			},
		},
		&cobra.Command{
			Use:  "collections ID...",
			Args: cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, ids []string) error {
				plan, err := a.svc.PlanCollectionDeletion(ids)
				if err != nil {
					return err
				}
				return a.printJSON(plan)
			},
		},
	)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the caregiver's data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.printJSON(a.svc.State().Export())
		},
	}
}

func (a *app) listRecipients() error {
	local := a.svc.State()
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLLECTIONS\tCONTACTS")
	for _, r := range local.RecipientsByCaregiverID(a.caregiver) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.ID, r.FullName(), r.CollectionCount, len(local.ContactsByRecipientID(r.ID)))
	}
	return tw.Flush()
}

type reportView struct {
	Deleted       map[domain.EntityType][]string `json:"deleted"`
	AssetsDeleted int                            `json:"assets_deleted"`
	AssetFailures []string                       `json:"asset_failures,omitempty"`
}

// printReport prints rep even when err is set, so partial progress is visible.
func (a *app) printReport(rep cascade.Report, err error) error {
	view := reportView{Deleted: rep.Deleted, AssetsDeleted: rep.AssetsDeleted}
	for _, f := range rep.AssetFailures {
		view.AssetFailures = append(view.AssetFailures, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}
	if view.Deleted == nil {
		view.Deleted = map[domain.EntityType][]string{}
	}
	if perr := a.printJSON(view); perr != nil {
		return perr
	}
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
