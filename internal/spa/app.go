package spa

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultMountID is the id of the element the UI tree is mounted into.
const DefaultMountID = "app"

// ErrEmptyMountID is returned when the mount point has no name.
var ErrEmptyMountID = errors.New("mount element id is empty")

// Mounter attaches the root UI tree to the element with the given id.
type Mounter interface {
	Mount(mountID string) error
}

// Lightbox is the optional image viewer widget.
type Lightbox interface {
	Configure(opts LightboxOptions) error
}

// LightboxOptions are the display options of the image viewer.
type LightboxOptions struct {
	ResizeDuration int    `json:"resizeDuration"`
	WrapAround     bool   `json:"wrapAround"`
	AlbumLabel     string `json:"albumLabel"`
}

// DefaultLightbox returns the options applied at startup.
func DefaultLightbox() LightboxOptions {
	return LightboxOptions{
		ResizeDuration: 200,
		WrapAround:     true,
		AlbumLabel:     "Image %1 of %2",
	}
}

// App runs the one-time startup of the UI.
type App struct {
	root     Mounter
	lightbox Lightbox
	options  LightboxOptions
	mountID  string

	once    sync.Once
	mounted atomic.Bool
	err     error
}

type Option func(*App)

// WithLightbox registers the image viewer. A nil widget is the same as none.
func WithLightbox(l Lightbox) Option {
	return func(a *App) {
		a.lightbox = l
	}
}

// WithLightboxOptions overrides DefaultLightbox.
func WithLightboxOptions(opts LightboxOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

func WithMountID(id string) Option {
	return func(a *App) {
		a.mountID = id
	}
}

func NewApp(root Mounter, opts ...Option) *App {
	a := &App{
		root:    root,
		options: DefaultLightbox(),
		mountID: DefaultMountID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bootstrap configures the lightbox when one is present and mounts the root
// tree. Only the first call does any work; later calls return its result.
func (a *App) Bootstrap() error {
	a.once.Do(func() {
		a.err = a.bootstrap()
	})
	return a.err
}

func (a *App) bootstrap() error {
	if a.mountID == "" {
		return ErrEmptyMountID
	}

	if a.lightbox != nil {
		if err := a.lightbox.Configure(a.options); err != nil {
			return fmt.Errorf("failed to configure lightbox: %w", err)
		}
	}

	if err := a.root.Mount(a.mountID); err != nil {
		return fmt.Errorf("failed to mount into #%s: %w", a.mountID, err)
	}

	a.mounted.Store(true)
	return nil
}

// Mounted reports whether the root tree has been mounted.
func (a *App) Mounted() bool {
	return a.mounted.Load()
}
