// Package main implements vaultctl, a command line harness for the local
// key vault. It drives the same service the mobile host embeds, against an
// encrypted SQLite store on disk.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/everkeep/keyvault/storage"
	"github.com/everkeep/keyvault/vault"
)

// Version is set at build time
var Version = "dev"

func main() {
	configPath := flag.String("config", "vault.yaml", "Path to config file")
	storePath := flag.String("store", "vault.db", "Path to the SQLite store")
	storageKeyHex := flag.String("storage-key", "", "Hex-encoded 32-byte storage encryption key")
	op := flag.String("op", "", "Operation: create | import | unlock | address | change-pin | reset")
	pin := flag.String("pin", "", "Vault PIN")
	newPIN := flag.String("new-pin", "", "New PIN (change-pin only)")
	keyHex := flag.String("key", "", "Hex-encoded signing key (import only)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *op == "" {
		fmt.Fprintln(os.Stderr, "Error: --op is required")
		os.Exit(1)
	}

	storageKey, err := hex.DecodeString(*storageKeyHex)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid storage key")
	}

	cfg, err := vault.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	store, err := storage.NewSQLiteStore(*storePath, storageKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()

	svc, err := vault.NewService(store, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault service")
	}

	if err := run(context.Background(), svc, *op, *pin, *newPIN, *keyHex); err != nil {
		log.Fatal().Err(err).Str("op", *op).Msg("Operation failed")
	}
}

func run(ctx context.Context, svc *vault.Service, op, pin, newPIN, keyHex string) error {
	switch op {
	case "create":
		addr, err := svc.CreateVault(ctx, []byte(pin))
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil

	case "import":
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return fmt.Errorf("invalid key encoding: %w", err)
		}
		addr, err := svc.ImportVault(ctx, key, []byte(pin))
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil

	case "unlock":
		signer, err := svc.Unlock(ctx, []byte(pin))
		if err != nil {
			return err
		}
		fmt.Println(signer.Address())
		svc.Lock()
		return nil

	case "address":
		addr, err := svc.Address()
		if err != nil {
			return err
		}
		fmt.Println(addr)
		return nil

	case "change-pin":
		if err := svc.ChangePIN(ctx, []byte(pin), []byte(newPIN)); err != nil {
			return err
		}
		svc.Lock()
		return nil

	case "reset":
		return svc.Reset()

	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
