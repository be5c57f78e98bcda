package main

import (
	"bufio"
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/uichanges"
	"github.com/golly-go/vaultstate/vaults"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []int64
		wantErr bool
	}{
		{name: "one", args: []string{"1001"}, want: []int64{1001}},
		{name: "many", args: []string{"1001", "2001"}, want: []int64{1001, 2001}},
		{name: "not a number", args: []string{"1001", "vault"}, wantErr: true},
		{name: "negative", args: []string{"-3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseIDs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Len(t, ids, len(tt.want))
			for i, id := range ids {
				assert.Equal(t, tt.want[i], id.Int64())
			}
		})
	}
}

func TestPrintView(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var out bytes.Buffer
	subject := stream.NewSubject[int]()
	subject.Next(1)

	done := make(chan error, 1)
	go func() { done <- printView(ctx, &out, subject.Stream()) }()

	require.Eventually(t, func() bool { return subject.Observers() == 1 }, time.Second, time.Millisecond)
	subject.Next(2)
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, "1\n2\n", out.String())
}

func TestPrintViewStopsOnError(t *testing.T) {
	err := printView(context.Background(), &bytes.Buffer{}, stream.Fail[int](vaults.ErrVaultNotFound))
	assert.ErrorIs(t, err, vaults.ErrVaultNotFound)
}

func TestUIDemo(t *testing.T) {
	logger, _ := test.NewNullLogger()
	ui := uichanges.Initialize(logger.WithField("test", t.Name()))

	var out bytes.Buffer
	require.NoError(t, uiDemo(ui, &out))

	counts := map[string]int{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var line struct {
			Topic string `json:"topic"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		counts[line.Topic]++
	}

	assert.Equal(t, map[string]int{
		uichanges.TabChangeSubject:            1,
		uichanges.ProtectionModeChangeSubject: 2,
		uichanges.AddFormChange:               4,
		uichanges.BasicBuyFormChange:          3,
		uichanges.RemoveFormChange:            1,
	}, counts)

	tab, ok := ui.Tab.Last()
	require.True(t, ok)
	assert.Equal(t, uichanges.ProtectionView, tab.CurrentMode)

	form, ok := ui.AddForm.Last()
	require.True(t, ok)
	assert.Equal(t, uichanges.CloseToDai, form.CloseType)
	assert.True(t, form.IsEditing)
}

func TestRuntimeManualBlocks(t *testing.T) {
	t.Setenv("VAULTSTATE_LOG_LEVEL", "error")

	rt, err := newRuntime(&flags{blocks: "manual"})
	require.NoError(t, err)
	defer rt.close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	rt.start(gctx, g)

	vault, err := stream.Await(ctx, rt.app.Vault(big.NewInt(1001)))
	require.NoError(t, err)
	assert.Equal(t, "ETH-A", vault.Ilk)
	assert.Equal(t, vaults.Standard, vault.Type)

	cancel()
	assert.NoError(t, g.Wait())
}

func TestRuntimeRejectsUnknownSource(t *testing.T) {
	_, err := newRuntime(&flags{blocks: "smoke-signals"})
	assert.Error(t, err)
}
