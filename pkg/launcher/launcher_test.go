package launcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(name string, role Role, command ...string) ServiceSpec {
	return ServiceSpec{
		Name:    name,
		Role:    role,
		Command: command,
		Host:    "127.0.0.1",
		Port:    18000,
	}
}

func TestLauncher_BackgroundLaunch(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "sleep", "30")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)
	defer handle.Terminate(context.Background(), 100*time.Millisecond) //nolint:errcheck

	assert.Greater(t, handle.PID(), 0)
	assert.True(t, handle.Alive())
	assert.Equal(t, ProcessStarting, handle.State())
	assert.Equal(t, "backend", handle.Spec().Name)
	assert.False(t, handle.StartTime().IsZero())
}

func TestLauncher_StartFailure(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "definitely-not-an-executable-2a7f")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.Error(t, err)
	assert.Nil(t, handle)
	assert.True(t, IsErrorCode(err, ErrorCodeProcessStartFailed))
	assert.Contains(t, err.Error(), "backend")
}

func TestLauncher_DuplicateRoleRejected(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "sleep", "30")

	first, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)
	defer first.Terminate(context.Background(), 100*time.Millisecond) //nolint:errcheck

	_, err = l.Launch(context.Background(), spec, ModeBackground)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeAlreadyRunning))

	// Once the first process is gone the role can be launched again.
	require.NoError(t, first.Terminate(context.Background(), 100*time.Millisecond))
	second, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)
	defer second.Terminate(context.Background(), 100*time.Millisecond) //nolint:errcheck
}

func TestHandle_ExitCodeRecorded(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "sh", "-c", "exit 7")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.False(t, handle.Alive())
	assert.Equal(t, 7, handle.ExitCode())
	assert.Equal(t, ProcessFailed, handle.State())
}

func TestHandle_CleanExit(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "true")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)

	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}

	assert.Equal(t, 0, handle.ExitCode())
	assert.Equal(t, ProcessExited, handle.State())
}

func TestHandle_TerminateGraceful(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "sleep", "30")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, handle.Terminate(context.Background(), 5*time.Second))

	// sleep dies on SIGTERM, well before the grace period.
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, handle.Alive())
}

func TestHandle_TerminateAlreadyExited(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "true")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)

	<-handle.Done()
	assert.NoError(t, handle.Terminate(context.Background(), time.Second))
}

func TestHandle_MarkReady(t *testing.T) {
	l := New(nil)
	spec := testSpec("backend", RoleBackend, "sleep", "30")

	handle, err := l.Launch(context.Background(), spec, ModeBackground)
	require.NoError(t, err)
	defer handle.Terminate(context.Background(), 100*time.Millisecond) //nolint:errcheck

	handle.MarkReady()
	assert.Equal(t, ProcessReady, handle.State())
}

func TestLauncher_Shutdown(t *testing.T) {
	l := New(nil)

	backend, err := l.Launch(context.Background(), testSpec("backend", RoleBackend, "sleep", "30"), ModeBackground)
	require.NoError(t, err)

	frontendSpec := testSpec("frontend", RoleFrontend, "sleep", "30")
	frontendSpec.Port = 18001
	frontend, err := l.Launch(context.Background(), frontendSpec, ModeBackground)
	require.NoError(t, err)

	require.NoError(t, l.Shutdown(context.Background(), 2*time.Second))
	assert.False(t, backend.Alive())
	assert.False(t, frontend.Alive())
}
