package main

import (
	"io"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/golly-go/vaultstate/functional"
	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/uichanges"
)

func uiCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "UI change bus tools",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "demo",
		Short: "Publish a scripted session on every UI topic and print each new state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig(f)
			if err != nil {
				return err
			}

			ui := uichanges.Initialize(logger)
			return uiDemo(ui, cmd.OutOrStdout())
		},
	})

	return cmd
}

type topicState struct {
	Topic string `json:"topic"`
	State any    `json:"state"`
}

// uiDemo prints every state change as it happens. Bus delivery is
// synchronous, so the output order follows the publish order.
func uiDemo(ui *uichanges.Changes, w io.Writer) error {
	enc := json.NewEncoder(w)

	var failed error
	subs := functional.Map(ui.Topics(), func(topic string) *stream.Subscription {
		return ui.Subscribe(topic).SubscribeFunc(func(state any) {
			if err := enc.Encode(topicState{Topic: topic, State: state}); err != nil && failed == nil {
				failed = err
			}
		}, nil)
	})
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	d := decimal.RequireFromString

	steps := []func() error{
		func() error { return ui.Tab.Publish(uichanges.ChangeTab{Mode: uichanges.ProtectionView}) },
		func() error { return ui.ProtectionMode.Publish(uichanges.ChangeMode{Mode: uichanges.StopLoss}) },
		func() error { return ui.AddForm.Publish(uichanges.SetCurrentForm{Form: uichanges.AddFormKind}) },
		func() error { return ui.AddForm.Publish(uichanges.SetStopLoss{Value: d("1.6")}) },
		func() error { return ui.AddForm.Publish(uichanges.SetCloseType{CloseType: uichanges.CloseToDai}) },
		func() error { return ui.AddForm.Publish(uichanges.SetEditing{Editing: true}) },
		func() error { return ui.ProtectionMode.Publish(uichanges.ChangeMode{Mode: uichanges.AutoBuy}) },
		func() error { return ui.BasicBuy.Publish(uichanges.SetExecutionCollRatio{Ratio: d("2.1")}) },
		func() error { return ui.BasicBuy.Publish(uichanges.SetTargetCollRatio{Ratio: d("1.9")}) },
		func() error { return ui.BasicBuy.Publish(uichanges.SetMaxGasGweiPrice{Gwei: d("300")}) },
		func() error {
			return ui.RemoveForm.Publish(uichanges.SetTxDetails{Details: &uichanges.TxDetails{Status: "pending"}})
		},
	}

	if err := functional.EachSuccess(steps, func(step func() error) error { return step() }); err != nil {
		return err
	}
	return failed
}
