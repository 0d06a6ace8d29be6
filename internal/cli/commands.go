package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/pkg/auth"
	"github.com/nidahp/portal-api/pkg/messaging/redis"
)

const timeLayout = "2006-01-02 15:04"

func (a *cliApp) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postgres.RunMigrations(cmd.Context(), a.db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", a.db.DriverName())
			return nil
		},
	}
}

func (a *cliApp) matchCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run the matcher and store its proposals as pending assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dryRun {
				res, err := a.svc.Matching.Compute(ctx)
				if err != nil {
					return err
				}
				if ok, err := a.printJSON(cmd, res); ok || err != nil {
					return err
				}
				a.printProposals(cmd, res.Proposals)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d proposed (dry run), skipped %d professionals and %d facilities\n",
					len(res.Proposals), res.SkippedProfessionals, res.SkippedFacilities)
				return nil
			}

			report, err := a.svc.Matching.Run(ctx)
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, report); ok || err != nil {
				return err
			}
			a.printProposals(cmd, report.Proposals)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d proposed: %d inserted, %d overwritten, %d failed\n",
				len(report.Proposals), report.Applied.Inserted, report.Applied.Overwritten, len(report.Applied.Failed))
			for _, f := range report.Applied.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "professional %d: %s\n", f.Proposal.ProfessionalID, f.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute proposals without storing them")
	return cmd
}

func (a *cliApp) printProposals(cmd *cobra.Command, proposals []model.ProposedAssignment) {
	if len(proposals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No proposals.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFESSIONAL\tFACILITY\tSCORE")
	for _, p := range proposals {
		fmt.Fprintf(w, "%d\t%d\t%d\n", p.ProfessionalID, p.FacilityID, p.Score)
	}
	w.Flush()
}

func (a *cliApp) pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List assignments and interests awaiting review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.svc.Approvals.PendingItems(cmd.Context())
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, items); ok || err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items.Assignments) == 0 && len(items.Interests) == 0 {
				fmt.Fprintln(out, "Nothing pending.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if len(items.Assignments) > 0 {
				fmt.Fprintln(w, "ASSIGNMENT\tPROFESSIONAL\tFACILITY\tSCORE\tPROPOSED")
				for _, as := range items.Assignments {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
						as.ProfessionalID, as.ProfessionalName, as.FacilityName, as.Score, as.ProposedAt.Format(timeLayout))
				}
				fmt.Fprintln(w)
			}
			if len(items.Interests) > 0 {
				fmt.Fprintln(w, "INTEREST\tPROFESSIONAL\tFACILITY\tNEED\tPROGRAM\tCREATED")
				for _, in := range items.Interests {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						in.ID, in.ProfessionalName, in.FacilityName, in.NeedDescription, in.ProgramType, in.CreatedAt.Format(timeLayout))
				}
			}
			return w.Flush()
		},
	}
}

type decision func(ctx context.Context, id int64) (interface{}, error)

func (a *cliApp) approveAssignment(ctx context.Context, id int64) (interface{}, error) {
	return a.svc.Approvals.ApproveAssignment(ctx, id)
}

func (a *cliApp) rejectAssignment(ctx context.Context, id int64) (interface{}, error) {
	return a.svc.Approvals.RejectAssignment(ctx, id)
}

func (a *cliApp) approveInterest(ctx context.Context, id int64) (interface{}, error) {
	return a.svc.Approvals.ApproveInterest(ctx, id)
}

func (a *cliApp) rejectInterest(ctx context.Context, id int64) (interface{}, error) {
	return a.svc.Approvals.RejectInterest(ctx, id)
}

func (a *cliApp) decideCmd(use, arg, short string, decide decision) *cobra.Command {
	return &cobra.Command{
		Use:   use + " " + arg,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			res, err := decide(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, res); ok || err != nil {
				return err
			}

			switch v := res.(type) {
			case *model.Assignment:
				fmt.Fprintf(cmd.OutOrStdout(), "assignment of professional %d to facility %d is now %s\n", v.ProfessionalID, v.FacilityID, v.Status)
			case *model.Interest:
				fmt.Fprintf(cmd.OutOrStdout(), "interest %d is now %s\n", v.ID, v.Status)
			}
			return nil
		},
	}
}

func (a *cliApp) reclassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify",
		Short: "Recompute the program type of every stored need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := a.svc.Needs.Reclassify(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d needs reclassified\n", changed)
			return nil
		},
	}
}

func (a *cliApp) tokenCmd() *cobra.Command {
	var (
		subject int64
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Mint an access token for local testing",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noDatabase: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if subject <= 0 {
				return fmt.Errorf("--sub must be a positive actor id")
			}
			switch model.Role(role) {
			case model.RoleIndividual, model.RoleAssociation, model.RoleFacility, model.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			svc, err := auth.NewJWTService(a.cfg.JWT.Secret, a.cfg.JWT.Issuer)
			if err != nil {
				return err
			}
			token, err := svc.GenerateAccessToken(subject, model.Role(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&subject, "sub", 0, "actor id")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "actor role")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func (a *cliApp) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "watch",
		Short:       "Print domain events as the worker publishes them",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noDatabase: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			broker, err := redis.NewRedisBroker(ctx, redis.Config{
				URL:          a.cfg.Redis.URL,
				MaxRetries:   a.cfg.Redis.MaxRetries,
				RetryBackoff: a.cfg.Redis.RetryBackoff,
				PoolSize:     1,
			}, a.log)
			if err != nil {
				return err
			}
			defer broker.Close()

			msgs, err := broker.Subscribe(ctx, a.cfg.Redis.Channel)
			if err != nil {
				return err
			}
			a.log.Info("watching events", "channel", a.cfg.Redis.Channel)
			for msg := range msgs {
				if ok, err := a.printJSON(cmd, msg); ok || err != nil {
					if err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-22s %s\n", msg.OccurredAt.Format(time.RFC3339), msg.Type, msg.Payload)
			}
			return nil
		},
	}
}
