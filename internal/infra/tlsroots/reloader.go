package tlsroots

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CertReloader holds a server key pair and reloads it when either file
// changes. A failed reload keeps the previous pair.
type CertReloader struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	debounce time.Duration

	mu   sync.RWMutex
	cert *tls.Certificate

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ReloaderOption configures a CertReloader.
type ReloaderOption func(*CertReloader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ReloaderOption {
	return func(r *CertReloader) { r.logger = logger }
}

// WithDebounce sets how long to wait for a write burst to settle.
func WithDebounce(d time.Duration) ReloaderOption {
	return func(r *CertReloader) { r.debounce = d }
}

// NewCertReloader loads the key pair. It does not watch until Start.
func NewCertReloader(certFile, keyFile string, opts ...ReloaderOption) (*CertReloader, error) {
	r := &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.reload(); err != nil {
		return nil, fmt.Errorf("tlsroots: initial load: %w", err)
	}
	return r, nil
}

// Start watches the directories holding the key pair. Directories are
// watched rather than files so rename-based rotation is seen.
func (r *CertReloader) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}
	r.watcher = w

	r.wg.Add(1)
	go r.loop()

	r.logger.Info("certificate reloader started", "cert_file", r.certFile)
	return nil
}

// Stop ends watching. Safe to call more than once and before Start.
func (r *CertReloader) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		if r.watcher != nil {
			err = r.watcher.Close()
		}
	})
	return err
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// ServerConfig returns a server TLS config backed by the reloader.
func (r *CertReloader) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: r.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

func (r *CertReloader) loop() {
	defer r.wg.Done()

	names := map[string]struct{}{
		filepath.Base(r.certFile): {},
		filepath.Base(r.keyFile):  {},
	}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if _, ours := names[filepath.Base(ev.Name)]; !ours {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := r.reload(); err != nil {
				r.logger.Error("certificate reload failed", "cert_file", r.certFile, "error", err)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("certificate watcher error", "error", err)

		case <-r.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (r *CertReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("load key pair: %w", err)
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()

	r.logger.Info("certificate loaded", "cert_file", r.certFile)
	return nil
}
