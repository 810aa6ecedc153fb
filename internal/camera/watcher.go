package camera

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"stopmo/internal/logging"
)

// Hotplug actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
)

// Event is a camera appearing or disappearing.
type Event struct {
	Action string
	Device string
}

// Watcher listens for video4linux udev events.
type Watcher struct {
	logger  *slog.Logger
	handler func(Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewWatcher builds a watcher that calls handler for each camera event.
func NewWatcher(logger *slog.Logger, handler func(Event)) *Watcher {
	return &Watcher{
		logger:  logging.NewComponentLogger(logger, "camera-watcher"),
		handler: handler,
	}
}

// Start connects to the udev netlink socket. Connection failure is logged
// and leaves the watcher stopped; the session works without hotplug.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "camera hotplug unavailable", "udev_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "netlink sockets may be blocked in this environment"),
			logging.String(logging.FieldImpact, "camera plug and unplug will not be reported"),
		)
		return nil
	}
	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true
	go w.loop(ctx, conn, w.quit)
	w.logger.Debug("camera watcher started")
	return nil
}

// Stop closes the netlink socket.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	_ = w.conn.Close()
	w.conn = nil
	w.quit = nil
	w.running = false
}

// Running reports whether the watcher is connected.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, videoMatcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handle(uevent)
		case err := <-errs:
			w.logger.Debug("udev monitor error", logging.Error(err))
		}
	}
}

func videoMatcher() netlink.Matcher {
	action := ActionAdd + "|" + ActionRemove
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "video4linux"},
	})
	return rules
}

func (w *Watcher) handle(uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		return
	}
	event := Event{Action: string(uevent.Action), Device: device}
	w.logger.Info("camera hotplug",
		logging.String(logging.FieldEventType, "camera_"+event.Action),
		logging.String("device", device),
	)
	if w.handler != nil {
		w.handler(event)
	}
}

func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if strings.HasPrefix(devname, "/dev/") {
			return devname
		}
		return "/dev/" + devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
