package main

import (
	"log"

	"github.com/cloudx-io/openmint/core"
	"github.com/cloudx-io/openmint/receipt"
	"github.com/cloudx-io/openmint/registry"
)

// minterAccount is the identity the engine mints under. Appointed at startup;
// the admin can re-appoint at runtime via the registry.
const minterAccount = "house:minter"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	server, err := buildServer(cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func buildServer(cfg Config) (*Server, error) {
	ledger := core.NewNativeLedger()
	vault := core.NewWrappedVault(ledger)
	events := core.NewEventLog()
	supply := core.NewSupplyLedger(cfg.Cap)

	reg := registry.NewRegistry(cfg.AdminAccount, events)
	if err := reg.SetMinter(cfg.AdminAccount, minterAccount); err != nil {
		return nil, err
	}
	if cfg.BaseURI != "" {
		if err := reg.SetBaseURI(cfg.AdminAccount, cfg.BaseURI); err != nil {
			return nil, err
		}
	}

	engineCfg := core.Config{
		Custody:         "house:escrow",
		ProceedsAccount: cfg.ProceedsAccount,
		MinIncrement:    cfg.MinIncrement,
		RoundDuration:   cfg.RoundDuration,
	}
	minter := reg.MinterFor(minterAccount)
	sink := core.NewAccountSink(ledger, engineCfg.Custody)
	engine := core.NewEngine(engineCfg, ledger, vault, supply, minter, sink, events)

	signer, err := receipt.NewSigner()
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: Receipt signer initialized")

	return &Server{
		cfg:      cfg,
		ledger:   ledger,
		supply:   supply,
		registry: reg,
		engine:   engine,
		signer:   signer,
	}, nil
}
