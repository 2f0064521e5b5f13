package ingestion

import (
	"TrancheAllocator/internal/allocation"
	"TrancheAllocator/internal/money"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSV layouts:
//
//	wallets:  id,amount,percentage,tranches   (tranche names dash-separated)
//	tranches: id,amount,name,percentage
//
// Amounts are in pounds. A row whose first column is "id" is a header.
const (
	walletColumns  = 4
	trancheColumns = 4
)

// LoadWallets reads a wallets CSV file.
func LoadWallets(path string) ([]*allocation.Wallet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wallets: %w", err)
	}
	defer f.Close()

	return ReadWallets(f)
}

// LoadTranches reads a tranches CSV file.
func LoadTranches(path string) ([]*allocation.Tranche, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tranches: %w", err)
	}
	defer f.Close()

	return ReadTranches(f)
}

// ReadWallets parses wallet rows in file order.
func ReadWallets(r io.Reader) ([]*allocation.Wallet, error) {
	var wallets []*allocation.Wallet

	err := readRows(r, walletColumns, func(line int, row []string) error {
		balance, err := money.Parse(row[1])
		if err != nil {
			return fmt.Errorf("wallets line %d: amount: %w", line, err)
		}
		percentage, err := allocation.ParsePercentage(row[2])
		if err != nil {
			return fmt.Errorf("wallets line %d: %w", line, err)
		}

		w, err := allocation.NewWallet(strings.TrimSpace(row[0]), balance, splitNames(row[3]), percentage)
		if err != nil {
			return fmt.Errorf("wallets line %d: %w", line, err)
		}
		wallets = append(wallets, w)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wallets, nil
}

// ReadTranches parses tranche rows in file order.
func ReadTranches(r io.Reader) ([]*allocation.Tranche, error) {
	var tranches []*allocation.Tranche

	err := readRows(r, trancheColumns, func(line int, row []string) error {
		available, err := money.Parse(row[1])
		if err != nil {
			return fmt.Errorf("tranches line %d: amount: %w", line, err)
		}
		percentage, err := allocation.ParsePercentage(row[3])
		if err != nil {
			return fmt.Errorf("tranches line %d: %w", line, err)
		}

		t, err := allocation.NewTranche(strings.TrimSpace(row[0]), strings.TrimSpace(row[2]), available, percentage)
		if err != nil {
			return fmt.Errorf("tranches line %d: %w", line, err)
		}
		tranches = append(tranches, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tranches, nil
}

func readRows(r io.Reader, columns int, fn func(line int, row []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = columns
	reader.TrimLeadingSpace = true

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if strings.EqualFold(strings.TrimSpace(row[0]), "id") {
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

func splitNames(field string) []string {
	var names []string
	for _, n := range strings.Split(field, "-") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
