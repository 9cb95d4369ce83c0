// Package launcher resolves service specs for a two-tier web stack and
// starts them as supervised child processes.
//
// A launch begins from a LaunchEnvironment (platform hint plus optional
// port overrides) resolved once at startup. ResolveSpecs turns it into
// exactly one backend spec and one frontend spec:
//
//	env := launcher.LaunchEnvironment{Platform: "render"}
//	backend, frontend, err := launcher.ResolveSpecs(env, backendCmd, frontendCmd)
//
// The backend always binds loopback on a fixed internal port; the frontend
// binds all interfaces on the port its hosting platform expects. Platform
// defaults live in a single table, so supporting a new platform is a data
// change.
//
// Launch starts a spec as a child process in its own process group, with
// stdout/stderr inherited and HOST/PORT exported:
//
//	handle, err := l.Launch(ctx, backend, launcher.ModeBackground)
//
// The returned Handle is owned by the Launcher; other components observe
// it (Alive, Done, State) but never mutate it. Terminate sends SIGTERM to
// the process group, waits out a grace period and escalates to SIGKILL,
// so no child outlives the launcher that spawned it.
package launcher
