package main

import (
	"civicwatch/backend/internal/auth"
	"civicwatch/backend/internal/certify"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/models"
	"civicwatch/backend/internal/storage"
	"civicwatch/backend/internal/users"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type app struct {
	cfg        *config.Config
	store      *storage.Service
	users      *users.Service
	complaints *complaint.Service
	certify    *certify.Service
	tokens     *auth.Tokens
	actor      models.Actor
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var actorID string

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tasks for the civicwatch backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.actor = models.Actor{UserID: actorID, Role: models.RoleAdmin}
			return a.connect(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&actorID, "as", "admin-cli", "actor id recorded in audit trails")

	root.AddCommand(
		a.promoteCmd(),
		a.tokenCmd(),
		a.setStatusCmd(),
		a.reportCmd("confirm-report", "Confirm a report and penalise the complaint author", a.complaintsConfirm),
		a.reportCmd("dismiss-report", "Dismiss a report and restore the complaint's flag score", a.complaintsDismiss),
		a.certifyCmd(),
		a.verifyCmd(),
	)
	return root
}

// connect opens Postgres and, when reachable, Redis so feed events still fan out.
func (a *app) connect(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: redis unavailable, feed events will not be published: %v\n", err)
		_ = rdb.Close()
		rdb = nil
	}

	logger := zap.NewNop()
	a.store = storage.NewStorageService(db, rdb)
	a.users = users.NewService(a.store, logger)
	a.complaints = complaint.NewService(a.store, nil, logger)
	a.certify = certify.NewService(a.store, logger)
	a.tokens = auth.NewTokens(cfg.JWTSecret, 0)
	return nil
}

func (a *app) promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <user_id> <citizen|official|admin>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.users.SetRole(cmd.Context(), args[0], models.Role(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("User %s is now %s.\n", u.ID, u.Role)
			return nil
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user_id>",
		Short: "Mint a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.users.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tokens := a.tokens
			if ttl > 0 {
				tokens = auth.NewTokens(a.cfg.JWTSecret, ttl)
			}
			tok, err := tokens.Issue(u.ID, u.Role)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default 72h)")
	return cmd
}

func (a *app) setStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <complaint_id> <inProgress|solved|rejected> [note...]",
		Short: "Move a complaint through its lifecycle",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := strings.Join(args[2:], " ")
			c, err := a.complaints.UpdateStatus(cmd.Context(), a.actor, args[0], models.ComplaintStatus(args[1]), note)
			if err != nil {
				return err
			}
			fmt.Printf("Complaint %s is now %s.\n", c.ID, c.Status)
			return nil
		},
	}
}

func (a *app) complaintsConfirm(ctx context.Context, id uint) error {
	return a.complaints.ConfirmReport(ctx, a.actor, id)
}

func (a *app) complaintsDismiss(ctx context.Context, id uint) error {
	return a.complaints.DismissReport(ctx, a.actor, id)
}

func (a *app) reportCmd(use, short string, run func(context.Context, uint) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <report_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid report id %q", args[0])
			}
			if err := run(cmd.Context(), uint(id)); err != nil {
				return err
			}
			fmt.Printf("Report %d: %s done.\n", id, use)
			return nil
		},
	}
}

func (a *app) certifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "certify <complaint_id>",
		Short: "Compute and store the metadata hash of a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := a.certify.Certify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s %s %s\n", cert.ComplaintID, cert.Algorithm, cert.Hash)
			return nil
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <complaint_id>",
		Short: "Recompute a complaint's hash and compare it with the stored certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.certify.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("valid=%t stored=%s computed=%s\n", v.Valid, v.Stored, v.Computed)
			if !v.Valid {
				os.Exit(2)
			}
			return nil
		},
	}
}
