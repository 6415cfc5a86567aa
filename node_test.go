// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bazaar_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
	"github.com/blinklabs-io/bazaar/ledger/ledgertest"
	"github.com/blinklabs-io/bazaar/payout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	buyer    = ledgertest.Address("buyer")
	seller   = ledgertest.Address("seller")
	platform = ledgertest.Address("platform")
	stranger = ledgertest.Address("stranger")
)

type testNode struct {
	*bazaar.Node
	clock    *chain.ManualClock
	recorder *payout.Recorder
}

func startTestNode(t *testing.T, opts ...bazaar.ConfigOptionFunc) *testNode {
	t.Helper()
	tn := &testNode{
		clock:    chain.NewManualClock(time.Unix(1_700_000_000, 0)),
		recorder: payout.NewRecorder(nil),
	}
	allOpts := []bazaar.ConfigOptionFunc{
		bazaar.WithPlatformWallet(platform),
		bazaar.WithClock(tn.clock),
		bazaar.WithTransferer(tn.recorder),
	}
	allOpts = append(allOpts, opts...)
	n, err := bazaar.New(bazaar.NewConfig(allOpts...))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = n.Stop()
	})
	require.NoError(t, n.Start(context.Background()))
	tn.Node = n
	return tn
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := bazaar.New(bazaar.NewConfig())
	require.ErrorContains(t, err, "invalid configuration")
	_, err = bazaar.New(bazaar.NewConfig(
		bazaar.WithPlatformWallet(platform),
		bazaar.WithFeeRate(2, 1),
	))
	require.Error(t, err)
	_, err = bazaar.New(bazaar.NewConfig(
		bazaar.WithPlatformWallet(platform),
		bazaar.WithVotingPeriod(time.Millisecond),
	))
	require.Error(t, err)
}

func TestStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	n, err := bazaar.New(bazaar.NewConfig(bazaar.WithPlatformWallet(platform)))
	require.NoError(t, err)
	_, err = n.Withdraw(context.Background(), buyer)
	require.ErrorIs(t, err, bazaar.ErrNodeNotStarted)
	_, err = n.Order(1)
	require.ErrorIs(t, err, bazaar.ErrNodeNotStarted)
	require.NoError(t, n.Stop())
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestStartTwice(t *testing.T) {
	n := startTestNode(t)
	require.Error(t, n.Start(context.Background()))
}

func TestEscrowSettlementThroughNode(t *testing.T) {
	n := startTestNode(t)
	ctx := context.Background()

	receipt, err := n.CreateOrder(ctx, buyer, 1000, 1, seller)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Seq)
	assert.Equal(t, escrow.LedgerName, receipt.Ledger)
	assert.Equal(t, "createOrder", receipt.Operation)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, escrow.OrderCreatedEventType, receipt.Events[0].Type())

	_, err = n.CompleteOrder(ctx, buyer, 1)
	require.NoError(t, err)

	order, err := n.Order(1)
	require.NoError(t, err)
	assert.True(t, order.Completed)
	sellerBal, err := n.Balance(seller)
	require.NoError(t, err)
	assert.Equal(t, uint64(975), sellerBal)
	platformBal, err := n.Balance(platform)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), platformBal)

	_, err = n.Withdraw(ctx, seller)
	require.NoError(t, err)
	_, err = n.Withdraw(ctx, platform)
	require.NoError(t, err)
	_, err = n.Withdraw(ctx, seller)
	require.ErrorIs(t, err, escrow.ErrNoBalance)

	assert.Equal(t, uint64(975), n.recorder.Total(seller))
	assert.Equal(t, uint64(25), n.recorder.Total(platform))
	// The payout carries the sequence of the withdraw call
	transfers := n.recorder.Transfers()
	require.Len(t, transfers, 2)
	assert.Equal(t, uint64(3), transfers[0].Seq)

	report, err := n.Audit()
	require.NoError(t, err)
	assert.True(t, report.Balanced)
	assert.Equal(t, uint64(1000), report.Deposited)
	assert.Equal(t, uint64(1000), report.Withdrawn)
}

func TestRevertedCallIsJournaled(t *testing.T) {
	n := startTestNode(t)
	ctx := context.Background()
	_, err := n.CreateOrder(ctx, buyer, 100, 7, seller)
	require.NoError(t, err)
	_, err = n.CompleteOrder(ctx, stranger, 7)
	require.ErrorIs(t, err, escrow.ErrNotBuyer)

	calls, err := n.Calls(0, 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, models.CallStatusCommitted, calls[0].Status)
	assert.True(t, calls[1].Reverted())
	assert.Equal(t, "NOT_BUYER", calls[1].ErrorCode)
	assert.Equal(t, string(ledger.KindAuthorization), calls[1].ErrorKind)

	events, err := n.Events(escrow.LedgerName, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(escrow.OrderCreatedEventType), events[0].Type)
	assert.Equal(t, uint64(7), events[0].Subject)

	events, err = n.Events(governance.LedgerName, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGovernanceThroughNode(t *testing.T) {
	n := startTestNode(t)
	ctx := context.Background()
	alice := ledgertest.Address("alice")
	bob := ledgertest.Address("bob")
	for _, addr := range []ledger.Address{alice, bob} {
		_, err := n.JoinDAO(ctx, addr)
		require.NoError(t, err)
	}
	id, receipt, err := n.CreateProposal(ctx, alice, "raise the fee")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	assert.Equal(t, "createProposal", receipt.Operation)

	_, err = n.Vote(ctx, alice, id, true)
	require.NoError(t, err)
	_, err = n.Vote(ctx, bob, id, true)
	require.NoError(t, err)
	_, err = n.Vote(ctx, bob, id, false)
	require.ErrorIs(t, err, governance.ErrAlreadyVoted)

	vote, voted, err := n.ProposalVote(id, bob)
	require.NoError(t, err)
	require.True(t, voted)
	assert.True(t, vote.Support)

	_, err = n.ExecuteProposal(ctx, alice, id)
	require.ErrorIs(t, err, governance.ErrVotingNotEnded)

	n.clock.Advance(governance.DefaultVotingPeriod)
	_, err = n.ExecuteProposal(ctx, stranger, id)
	require.NoError(t, err)

	proposal, err := n.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStatusExecuted, proposal.Status(n.BlockTime()))
	assert.Equal(t, uint64(2), proposal.ForVotes)

	member, err := n.Member(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(governance.DefaultMinVotingPower), member.VotingPower)
	_, err = n.Member(stranger)
	require.ErrorIs(t, err, governance.ErrMemberNotFound)

	state, err := n.GovernanceState()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.MemberCount)
	assert.Equal(t, uint64(1), state.ProposalCount)
}

func TestTransfererSelection(t *testing.T) {
	recorder := payout.NewRecorder(nil)
	testDefs := []struct {
		name  string
		opts  []bazaar.ConfigOptionFunc
		check func(*testing.T, ledger.Transferer)
	}{
		{
			name: "explicit",
			opts: []bazaar.ConfigOptionFunc{bazaar.WithTransferer(recorder)},
			check: func(t *testing.T, tr ledger.Transferer) {
				assert.Same(t, recorder, tr)
			},
		},
		{
			name: "webhook",
			opts: []bazaar.ConfigOptionFunc{bazaar.WithPayoutWebhook("http://127.0.0.1:1/payouts")},
			check: func(t *testing.T, tr ledger.Transferer) {
				assert.IsType(t, &payout.Webhook{}, tr)
			},
		},
		{
			name: "default",
			check: func(t *testing.T, tr ledger.Transferer) {
				assert.IsType(t, &payout.Recorder{}, tr)
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			opts := append([]bazaar.ConfigOptionFunc{bazaar.WithPlatformWallet(platform)}, testDef.opts...)
			n, err := bazaar.New(bazaar.NewConfig(opts...))
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = n.Stop()
			})
			require.NoError(t, n.Start(context.Background()))
			testDef.check(t, n.Transferer())
		})
	}
}

func TestNodeRecoversFromDisk(t *testing.T) {
	dataDir := t.TempDir()
	first := startTestNode(t, bazaar.WithDatabasePath(dataDir))
	_, err := first.CreateOrder(context.Background(), buyer, 500, 3, seller)
	require.NoError(t, err)
	require.NoError(t, first.Stop())

	second := startTestNode(t, bazaar.WithDatabasePath(dataDir))
	assert.Equal(t, uint64(1), second.Chain().Seq())
	order, err := second.Order(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), order.Amount)
	receipt, err := second.CompleteOrder(context.Background(), buyer, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.Seq)
}

func TestNodeServesAPI(t *testing.T) {
	n := startTestNode(t, bazaar.WithAPIListenAddress("127.0.0.1:0"))
	addr := n.APIAddr()
	require.NotEmpty(t, addr)
	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitAfterStop(t *testing.T) {
	n, err := bazaar.New(bazaar.NewConfig(
		bazaar.WithPlatformWallet(platform),
		bazaar.WithTransferer(payout.NewRecorder(nil)),
	))
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background()))
	_, err = n.CreateOrder(context.Background(), buyer, 10, 1, seller)
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	_, err = n.CreateOrder(context.Background(), buyer, 10, 2, seller)
	require.ErrorIs(t, err, chain.ErrChainStopped)
}
