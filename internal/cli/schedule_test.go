package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCommand_Validation(t *testing.T) {
	path := setupCLI(t, &fakeClient{}, &fakeBackend{})

	_, err := execute(t, "--config", path, "schedule", "list events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"cron" not set`)

	_, err = execute(t, "--config", path, "schedule", "--cron", "every tuesday", "list events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron spec")
}

func TestScheduler_RunsIndependentRequests(t *testing.T) {
	client := &fakeClient{tools: calendarTools()}
	backend := &fakeBackend{replies: []string{listEventsPlan}}
	cfgFile = setupCLI(t, client, backend)

	var out strings.Builder
	a, err := newApp(&out)
	require.NoError(t, err)
	defer a.close()

	schedule, err := cron.ParseStandard("@every 1s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := a.newScheduler(ctx, schedule, "what's on today?", 3)
	c.Start()

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		// first run: plan + completion, second run: completion
		return backend.calls >= 3
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	<-c.Stop().Done()

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, []string{"calendar_list_events"}, client.calls)
}

func TestCronLogger_RecoveredPanicGoesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	job := cron.NewChain(cron.Recover(l)).Then(cron.FuncJob(func() {
		panic("boom")
	}))
	require.NotPanics(t, job.Run)

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"message":"panic"`)
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, `"stack":`)

	buf.Reset()
	l.Info("schedule", "now", "2026-10-16", "entry", 1)
	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"entry":1`)

	buf.Reset()
	l.Error(errors.New("tick failed"), "run")
	assert.Contains(t, buf.String(), `"error":"tick failed"`)
}
