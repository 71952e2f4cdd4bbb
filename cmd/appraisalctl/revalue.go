package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/yourorg/appraisal-api/internal/appraisal"
	"github.com/yourorg/appraisal-api/internal/redisx"
	"github.com/yourorg/appraisal-api/internal/valuation"
)

func revalueCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "revalue [appraisal-id...]",
		Short: "Recompute and store valuations",
		Long: `Recompute valuations for the given appraisals, or every appraisal with --all,
persisting the results and refreshing the cache when redis is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass appraisal IDs or --all")
			}
			ctx := cmd.Context()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ids := args
			if all {
				if ids, err = st.ListAppraisalIDs(ctx); err != nil {
					return fmt.Errorf("list appraisals: %w", err)
				}
			}
			if len(ids) == 0 {
				slog.Info("no appraisals to revalue")
				return nil
			}

			eng, err := valuation.NewEngine(appCfg.Valuation, valuation.WithClock(now))
			if err != nil {
				return err
			}
			svc := &appraisal.Service{Store: st, Engine: eng, CacheTTL: appCfg.Cache.TTL, Now: now}
			if appCfg.Redis.Addr != "" {
				rc := redisx.New(appCfg.Redis.Addr, appCfg.Redis.Password, appCfg.Redis.DB)
				defer func() { _ = rc.Close() }()
				svc.Cache = rc
			}

			failed, err := revalueAll(ctx, svc, ids, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.Info("revaluation finished", "total", len(ids), "failed", failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d revaluations failed", failed, len(ids))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "revalue every stored appraisal")
	return cmd
}

type recomputer interface {
	Recompute(ctx context.Context, appraisalID string) (appraisal.Valuation, error)
}

// revalueAll reports how many recomputations failed. It stops early only when
// ctx is cancelled.
func revalueAll(ctx context.Context, r recomputer, ids []string, w io.Writer) (int, error) {
	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Revaluing appraisals"),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
	)

	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		if _, err := r.Recompute(ctx, id); err != nil {
			failed++
			slog.Warn("revaluation failed", "appraisal_id", id, "error", err)
		}
		if err := bar.Add(1); err != nil {
			slog.Debug("progress bar update failed", "error", err)
		}
	}
	return failed, nil
}
