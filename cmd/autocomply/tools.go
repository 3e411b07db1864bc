package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/config"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/export"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/privacy"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// runSweep executes one retention sweep and exits.
func runSweep(stdout, stderr io.Writer) int {
	cfg := config.Load()
	setupLogging(cfg)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(stderr, "store init failed:", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	policy := privacy.Policy{
		EvidenceRetentionDays: cfg.EvidenceRetentionDays,
		PayloadRetentionDays:  cfg.PayloadRetentionDays,
	}
	purged, err := privacy.NewSweeper(st, cfg.UploadsRoot, policy).Sweep(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(stderr, "sweep failed:", err)
		return 1
	}
	fmt.Fprintf(stdout, "retention sweep complete: %d blobs purged\n", purged)
	return 0
}

// runVerifyExport checks the signature and integrity flag of a bundle
// file produced by the export endpoint.
func runVerifyExport(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, "Usage: autocomply verify-export <bundle.json>")
		return 2
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(stderr, "read bundle:", err)
		return 1
	}

	cfg := config.Load()
	signer, err := export.NewSigner(cfg.SigningKey, cfg.Environment)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := signer.VerifyBundle(data); err != nil {
		fmt.Fprintln(stderr, "verification FAILED:", err)
		return 1
	}
	fmt.Fprintln(stdout, "bundle verified: signature valid, integrity check passed")
	return 0
}
