package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"SecureNotes/internal/auth"
	"SecureNotes/internal/config"
	"SecureNotes/internal/crypto"
	"SecureNotes/internal/repo"
	"SecureNotes/internal/service"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		_ = logger.Sync()
	}()

	if err := os.MkdirAll(cfg.VaultDir, 0o700); err != nil {
		sugar.Fatalw("failed to create vault dir", "error", err)
	}

	db, err := repo.Open(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to open note store", "error", err)
	}

	params := crypto.KDFParams{
		Time:      uint32(cfg.KDFTime),
		MemoryKiB: uint32(cfg.KDFMemoryKiB),
		Threads:   uint8(cfg.KDFThreads),
	}
	manager := auth.NewManager(cfg.VaultDir, params, sugar)
	manager.SetLockoutPolicy(cfg.MaxAttempts, time.Duration(cfg.LockoutSeconds)*time.Second)

	vault := service.NewVault(db, manager, sugar)
	// Ключ сессии затирается на любом пути выхода.
	defer vault.Lock()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if vault.FirstRun() {
		if err := setup(ctx, vault); err != nil {
			sugar.Fatalw("setup failed", "error", err)
		}
	} else {
		if err := unlock(ctx, vault); err != nil {
			sugar.Fatalw("unlock failed", "error", err)
		}
	}

	stats, err := vault.VaultStats(ctx)
	if err != nil {
		sugar.Fatalw("failed to read vault stats", "error", err)
	}
	fmt.Printf("Vault unlocked: %d notes, %d notebooks (%d favorites, %d in trash)\n",
		stats.Notes, stats.Notebooks, stats.Favorites, stats.Trashed)

	// Дальше ядром управляет оболочка; процесс ждёт сигнала завершения.
	<-ctx.Done()
}

// setup — первичная установка мастер-пароля с подтверждением.
func setup(ctx context.Context, vault *service.Vault) error {
	for {
		pass, err := prompt("Create master password: ")
		if err != nil {
			return err
		}
		confirm, err := prompt("Confirm master password: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			fmt.Println("Passwords do not match, try again.")
			continue
		}
		err = vault.SetupPassword(ctx, pass)
		var weak *auth.WeakPasswordError
		if errors.As(err, &weak) {
			fmt.Println("Password is too weak, required:")
			for _, req := range weak.Requirements {
				fmt.Println("  -", req)
			}
			continue
		}
		return err
	}
}

// unlock запрашивает пароль до успеха; при блокировке печатает остаток.
func unlock(ctx context.Context, vault *service.Vault) error {
	for {
		pass, err := prompt("Master password: ")
		if err != nil {
			return err
		}
		err = vault.Authenticate(ctx, pass)
		if err == nil {
			return nil
		}
		var locked *auth.LockedError
		switch {
		case errors.As(err, &locked):
			fmt.Printf("Account locked. Try again in %d seconds.\n", int(locked.Remaining.Seconds()))
		case errors.Is(err, auth.ErrWrongPassword):
			fmt.Println("Wrong password.")
		default:
			return err
		}
	}
}

// prompt читает пароль без эха.
func prompt(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
