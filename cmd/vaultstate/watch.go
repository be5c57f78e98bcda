package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/golly-go/vaultstate/functional"
	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/vaults"
)

func watchCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a live view as JSON lines, one per update",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "vault <id>...",
			Short: "Financial state of one or more vaults",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := parseIDs(args)
				if err != nil {
					return err
				}
				return watch(cmd, f, func(app *vaults.AppContext) *stream.Stream[[]vaults.Vault] {
					return stream.CombineAll(functional.Map(ids, app.Vault))
				})
			},
		},
		&cobra.Command{
			Use:   "insti <id>",
			Short: "Charter vault with its institutional terms",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := parseIDs(args)
				if err != nil {
					return err
				}
				return watch(cmd, f, func(app *vaults.AppContext) *stream.Stream[vaults.InstiVault] {
					return app.InstiVault(ids[0])
				})
			},
		},
		&cobra.Command{
			Use:   "ilk [ilk]",
			Short: "Parameters of one collateral type, or of all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) == 0 {
					return watch(cmd, f, (*vaults.AppContext).IlkDataList)
				}
				return watch(cmd, f, func(app *vaults.AppContext) *stream.Stream[vaults.IlkData] {
					return app.IlkData(args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "account <address>",
			Short: "Vaults overview of an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return watch(cmd, f, func(app *vaults.AppContext) *stream.Stream[vaults.VaultsOverview] {
					return app.VaultsOverview(args[0])
				})
			},
		},
	)

	return cmd
}

func parseIDs(args []string) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, len(args))

	err := functional.EachSuccess(args, func(arg string) error {
		id, ok := new(big.Int).SetString(arg, 10)
		if !ok || id.Sign() < 0 {
			return fmt.Errorf("invalid vault id %q", arg)
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// watch prints every value of view until interrupted or the view fails.
func watch[T any](cmd *cobra.Command, f *flags, view func(*vaults.AppContext) *stream.Stream[T]) error {
	rt, err := newRuntime(f)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	rt.start(ctx, g)

	g.Go(func() error {
		return printView(ctx, cmd.OutOrStdout(), view(rt.app))
	})

	return g.Wait()
}

func printView[T any](ctx context.Context, w io.Writer, s *stream.Stream[T]) error {
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	failed := make(chan error, 1)

	sub := s.SubscribeFunc(func(v T) {
		mu.Lock()
		defer mu.Unlock()

		if err := enc.Encode(v); err != nil {
			select {
			case failed <- err:
			default:
			}
		}
	}, func(err error) {
		select {
		case failed <- err:
		default:
		}
	})
	defer sub.Unsubscribe()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return err
	}
}
