package command_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/command"
	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/state"
)

type fakeSender struct {
	state models.ConnState
	sent  []string
	err   error
}

func (f *fakeSender) State() models.ConnState { return f.state }

func (f *fakeSender) Send(frame []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, string(frame))
	return nil
}

type fakeRecorder struct{ names []string }

func (f *fakeRecorder) RecordCommand(name string, _ []byte) { f.names = append(f.names, name) }

func setup(connState models.ConnState) (*command.CommandChannel, *fakeSender, *state.EntityStateStore) {
	store := state.NewEntityStateStore()
	store.Seed([]models.MRosterEntry{
		{Symbol: "ABC", Agents: []models.MAgentTemplate{
			{Strategy: models.StrategyNoise, RiskFactor: 1.0, Bankroll: 10000},
			{Strategy: models.StrategyMarketMaker, RiskFactor: 1.0, Bankroll: 10000},
		}},
		{Symbol: "XYZ", Agents: []models.MAgentTemplate{
			{Strategy: models.StrategyMomentum, RiskFactor: 1.0, Bankroll: 10000},
		}},
	})
	sender := &fakeSender{state: connState}
	ch := command.NewCommandChannel(sender, store, []string{"ABC", "XYZ"}, logger.NewNopLogger("Commands"))
	return ch, sender, store
}

func TestSetRiskOutOfRangeRevertsWithoutSending(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)
	store.SetRiskFactor("Agent_1", 1.3)

	err := ch.SetRisk("Agent_1", 0.05)
	require.Error(t, err)

	var vErr *helpers.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, models.ParamSetRisk, vErr.Parameter)
	assert.Equal(t, 1.3, vErr.RevertTo)
	assert.Empty(t, sender.sent)

	rec, _ := store.Get("Agent_1")
	assert.Equal(t, 1.3, rec.RiskFactor)
}

func TestSetRiskBoundsAreInclusive(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)

	require.NoError(t, ch.SetRisk("Agent_1", 0.1))
	require.NoError(t, ch.SetRisk("Agent_2", 2.0))
	assert.Error(t, ch.SetRisk("Agent_3", 2.01))

	require.Len(t, sender.sent, 2)
	assert.JSONEq(t, `{"agent_id":"Agent_1","parameter":"set_risk","value":0.1}`, sender.sent[0])
	rec, _ := store.Get("Agent_2")
	assert.Equal(t, 2.0, rec.RiskFactor)
}

func TestControlsApplyOptimistically(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)
	recorder := &fakeRecorder{}
	ch.SetRecorder(recorder)

	require.NoError(t, ch.SetActive("Agent_1", false))
	require.NoError(t, ch.ChangeStrategy("Agent_1", models.StrategyMomentum))
	require.NoError(t, ch.SetBankroll("Agent_1", 0))

	rec, _ := store.Get("Agent_1")
	assert.False(t, rec.IsActive)
	assert.Equal(t, models.StrategyMomentum, rec.Strategy)
	assert.Equal(t, 0.0, rec.Bankroll)

	require.Len(t, sender.sent, 3)
	assert.JSONEq(t, `{"agent_id":"Agent_1","parameter":"set_active","value":false}`, sender.sent[0])
	assert.JSONEq(t, `{"agent_id":"Agent_1","parameter":"change_strategy","value":"momentum"}`, sender.sent[1])
	assert.JSONEq(t, `{"agent_id":"Agent_1","parameter":"set_bankroll","value":0}`, sender.sent[2])
	assert.Equal(t, []string{"set_active", "change_strategy", "set_bankroll"}, recorder.names)
}

func TestInvalidStrategyAndBankroll(t *testing.T) {
	ch, sender, _ := setup(models.ConnOpen)

	var vErr *helpers.ValidationError
	err := ch.ChangeStrategy("Agent_2", "arbitrage")
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, models.StrategyMarketMaker, vErr.RevertTo)

	err = ch.SetBankroll("Agent_2", -5)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 10000.0, vErr.RevertTo)

	err = ch.SetActive("Agent_42", true)
	require.True(t, errors.As(err, &vErr))
	assert.Nil(t, vErr.RevertTo)

	assert.Empty(t, sender.sent)
}

func TestCommandsDroppedWhenNotOpen(t *testing.T) {
	for _, st := range []models.ConnState{models.ConnIdle, models.ConnConnecting, models.ConnClosed} {
		ch, sender, store := setup(st)

		err := ch.SetRisk("Agent_1", 1.5)
		var cErr *helpers.ConnectivityError
		require.True(t, errors.As(err, &cErr), st.String())
		assert.ErrorIs(t, err, helpers.ErrNotConnected)

		require.Error(t, ch.Reset())
		assert.False(t, store.Paused())
		rec, _ := store.Get("Agent_1")
		assert.Equal(t, 1.0, rec.RiskFactor)
		assert.Empty(t, sender.sent)
	}
}

func TestSendFailureLeavesStoreUntouched(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)
	sender.err = helpers.ErrNotConnected

	err := ch.SetBankroll("Agent_1", 5)
	var cErr *helpers.ConnectivityError
	require.True(t, errors.As(err, &cErr))
	rec, _ := store.Get("Agent_1")
	assert.Equal(t, 10000.0, rec.Bankroll)
}

func TestResetSetsPausedImmediately(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)
	require.False(t, store.Paused())

	require.NoError(t, ch.Reset())
	assert.True(t, store.Paused())
	require.Len(t, sender.sent, 1)
	assert.JSONEq(t, `{"command":"reset"}`, sender.sent[0])
}

func TestPauseResume(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)

	require.NoError(t, ch.Pause())
	assert.True(t, store.Paused())
	require.NoError(t, ch.Resume())
	assert.False(t, store.Paused())

	assert.Equal(t, []string{`{"command":"set_pause"}`, `{"command":"set_resume"}`}, sender.sent)
}

func TestMarketEvent(t *testing.T) {
	ch, sender, _ := setup(models.ConnOpen)

	require.NoError(t, ch.MarketEvent("ABC", -25))
	require.Len(t, sender.sent, 1)
	assert.JSONEq(t, `{"command":"market_event","payload":{"symbol":"ABC","percent_shift":-0.25}}`, sender.sent[0])

	var vErr *helpers.ValidationError
	assert.True(t, errors.As(ch.MarketEvent("ABC", 100.5), &vErr))
	assert.True(t, errors.As(ch.MarketEvent("QQQ", 10), &vErr))
	assert.Len(t, sender.sent, 1)

	require.NoError(t, ch.MarketEvent("XYZ", 100))
	assert.JSONEq(t, `{"command":"market_event","payload":{"symbol":"XYZ","percent_shift":1}}`, sender.sent[1])
}

func TestSubmitControlAndGlobal(t *testing.T) {
	ch, sender, store := setup(models.ConnOpen)

	require.NoError(t, ch.SubmitControl("Agent_3", models.ParamSetRisk, 1.25))
	require.NoError(t, ch.SubmitControl("Agent_3", models.ParamSetActive, false))
	rec, _ := store.Get("Agent_3")
	assert.Equal(t, 1.25, rec.RiskFactor)
	assert.False(t, rec.IsActive)

	var vErr *helpers.ValidationError
	require.True(t, errors.As(ch.SubmitControl("Agent_3", models.ParamSetActive, "yes"), &vErr))
	assert.Equal(t, false, vErr.RevertTo)
	require.True(t, errors.As(ch.SubmitControl("Agent_3", "set_color", 1), &vErr))

	pct := 10.0
	require.NoError(t, ch.SubmitGlobal(models.MGlobalRequest{Command: models.CommandMarketEvent, Symbol: "XYZ", Percent: &pct}))
	require.True(t, errors.As(ch.SubmitGlobal(models.MGlobalRequest{Command: "halt"}), &vErr))
	require.True(t, errors.As(ch.SubmitGlobal(models.MGlobalRequest{Command: models.CommandMarketEvent, Symbol: "XYZ"}), &vErr))
	assert.Equal(t, models.CommandMarketEvent, vErr.Parameter)

	assert.Len(t, sender.sent, 3)
}
