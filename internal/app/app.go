package app

// Options configures the control facade.
type Options struct {
	// SocketPath overrides the control socket location.
	SocketPath string
}

// App exposes the operations the ctl subcommands share.
type App struct {
	socket string
}

// New constructs the shared controller facade.
func New(opts Options) *App {
	return &App{
		socket: opts.SocketPath,
	}
}
