package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/officewatch/internal/bus"
	"github.com/gosuda/officewatch/internal/config"
	"github.com/gosuda/officewatch/internal/docs"
	"github.com/gosuda/officewatch/internal/lockfile"
	"github.com/gosuda/officewatch/internal/office"
	"github.com/gosuda/officewatch/internal/server"
	"github.com/gosuda/officewatch/internal/session"
	"github.com/gosuda/officewatch/web"
)

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionFile := cfg.Watch.SessionFile
	projectDir := ""
	if sessionFile == "" {
		resolver := &session.EnvResolver{PointerPath: cfg.Watch.PointerFile}
		ptr, err := resolver.Resolve()
		if err != nil {
			return err
		}
		sessionFile = ptr.SessionFile
		projectDir = ptr.ProjectDir
	} else {
		projectDir = filepath.Dir(sessionFile)
	}

	b := bus.New(log.Logger)
	defer b.Dispose()

	runtime := office.NewRuntime(office.Config{
		SessionFile:  sessionFile,
		ProjectDir:   projectDir,
		PollInterval: cfg.Watch.PollInterval,
		Scanner:      &docs.FSScanner{Subdir: cfg.Docs.Subdir},
	}, b, log.Logger)

	webAssets, err := fs.Sub(web.Assets, "static")
	if err != nil {
		return fmt.Errorf("web assets: %w", err)
	}

	opener := &server.ExecOpener{Command: cfg.Editor.Command}
	srv := server.New(cfg, b, opener, webAssets, log.Logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	if err := runtime.Start(ctx); err != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
		return err
	}

	// Advertise the bound port so `officewatch tui` and `officewatch state`
	// can find this server. The lock keeps two servers from clobbering each
	// other's discovery file.
	release, lockErr := discoveryLock().Acquire()
	if lockErr != nil {
		if errors.Is(lockErr, lockfile.ErrHeld) {
			log.Warn().Msg("another officewatch server owns the discovery file, skipping advertisement")
		} else {
			log.Warn().Err(lockErr).Msg("discovery lock failed")
		}
	} else {
		defer release()
		if err := writeServerInfo(serverInfo{
			Port:        srv.Port(),
			PID:         os.Getpid(),
			SessionFile: sessionFile,
		}); err != nil {
			log.Warn().Err(err).Msg("writing discovery file failed")
		}
		defer removeServerInfo()
	}

	log.Info().
		Str("session", sessionFile).
		Int("port", srv.Port()).
		Msg("officewatch running")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	runtime.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func discoveryLock() *lockfile.Lock {
	return lockfile.New(filepath.Join(stateDir(), "server.lock"))
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".officewatch"
	}
	return filepath.Join(home, ".officewatch")
}
