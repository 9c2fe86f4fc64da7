package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_AllowedTransitions(t *testing.T) {
	now := time.Now()
	m := NewMachine("req-1", "t1", nil)
	assert.Equal(t, MachinePending, m.Status)

	require.NoError(t, m.Transition(MachineRunning, now))
	require.NoError(t, m.Transition(MachineStopping, now))
	require.NoError(t, m.Transition(MachineTerminated, now))
	assert.True(t, m.Status.IsTerminal())
}

func TestMachine_DisallowedTransition(t *testing.T) {
	m := NewMachine("req-1", "t1", nil)
	err := m.Transition(MachineStopping, time.Now()) // PENDING -> STOPPING is not allowed
	assert.Error(t, err)
	assert.Equal(t, MachinePending, m.Status)
}

func TestMachine_TerminalIsImmutable(t *testing.T) {
	now := time.Now()
	m := NewMachine("req-1", "t1", nil)
	require.NoError(t, m.Transition(MachineRunning, now))
	require.NoError(t, m.Transition(MachineFailed, now))

	err := m.Transition(MachineRunning, now)
	assert.Error(t, err)
}

func TestMachine_TerminatedRaisesBothEvents(t *testing.T) {
	now := time.Now()
	m := NewMachine("req-1", "t1", nil)
	require.NoError(t, m.Transition(MachineRunning, now))
	m.Events() // drain
	require.NoError(t, m.Transition(MachineStopping, now))
	m.Events() // drain
	require.NoError(t, m.Transition(MachineTerminated, now))

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventMachineStatusChanged, events[0].Type)
	assert.Equal(t, EventMachineTerminated, events[1].Type)
}

func TestMachine_FailIsNoOpWhenTerminal(t *testing.T) {
	now := time.Now()
	m := NewMachine("req-1", "t1", nil)
	require.NoError(t, m.Transition(MachineRunning, now))
	require.NoError(t, m.Transition(MachineFailed, now))
	m.Error = &ErrorSummary{Code: "X", Message: "first"}

	m.Fail("Y", "second", now)
	assert.Equal(t, "first", m.Error.Message)
}

func TestMachine_MissedPollCounter(t *testing.T) {
	m := NewMachine("req-1", "t1", nil)
	assert.Equal(t, 1, m.RecordMissedPoll())
	assert.Equal(t, 2, m.RecordMissedPoll())
	m.ResetMissedPolls()
	assert.Equal(t, 1, m.RecordMissedPoll())
}
