// Package report prints and writes the address book of a singleton deployment run.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pelletier/go-toml/v2"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"gopkg.in/yaml.v3"

	"github.com/singletonlabs/singleton-deployer/singleton"
)

// ErrUnsupportedFormat is returned by Write for an output path without a known extension.
var ErrUnsupportedFormat = errors.New("unsupported address book format")

// Entry is a deployed singleton.
type Entry struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Address string `json:"address" yaml:"address" toml:"address"`
}

// AddressBook is the written form of a singleton.Result. Singletons keep the deployment order.
// Chain ids and selectors are strings since toml integers are signed. Mode is empty for predicted
// addresses.
type AddressBook struct {
	ChainSelector string  `json:"chainSelector,omitempty" yaml:"chainSelector,omitempty" toml:"chain_selector,omitempty"`
	ChainID       string  `json:"chainId,omitempty" yaml:"chainId,omitempty" toml:"chain_id,omitempty"`
	ChainName     string  `json:"chainName,omitempty" yaml:"chainName,omitempty" toml:"chain_name,omitempty"`
	Mode          string  `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Factory       string  `json:"factory" yaml:"factory" toml:"factory"`
	Singletons    []Entry `json:"singletons" yaml:"singletons" toml:"singletons"`
}

// NewAddressBook converts a run result.
func NewAddressBook(result singleton.Result) AddressBook {
	book := AddressBook{
		Factory:    result.Factory.Hex(),
		Singletons: make([]Entry, 0, len(result.Order)),
	}
	if result.ChainSelector != 0 {
		book.ChainSelector = strconv.FormatUint(result.ChainSelector, 10)
	}
	if result.ChainID != 0 {
		book.ChainID = strconv.FormatUint(result.ChainID, 10)
	}
	if details, ok := chainsel.ChainBySelector(result.ChainSelector); ok {
		book.ChainName = details.Name
	}
	if mode, err := result.Mode.MarshalText(); err == nil {
		book.Mode = string(mode)
	}

	for _, name := range result.Order {
		book.Singletons = append(book.Singletons, Entry{
			Name:    name,
			Address: result.Addresses[name].Hex(),
		})
	}

	return book
}

// Print writes a human readable summary of result to w. A result without a mode is printed as
// a prediction.
func Print(w io.Writer, result singleton.Result) error {
	book := NewAddressBook(result)

	var buf bytes.Buffer
	if book.Mode == "" {
		fmt.Fprint(&buf, "\n=== Predicted singleton addresses")
		if chain := book.chain(); chain != "" {
			fmt.Fprintf(&buf, " on %s", chain)
		}
		fmt.Fprint(&buf, " ===\n\n")
	} else {
		fmt.Fprintf(&buf, "\n=== Singletons deployed on %s ===\n\n", book.chain())
		fmt.Fprintf(&buf, "Mode:     %s\n", book.Mode)
	}
	fmt.Fprintf(&buf, "Factory:  %s\n\n", book.Factory)

	table := tablewriter.NewWriter(&buf)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Name", "Address"})
	for _, e := range book.Singletons {
		table.Append([]string{e.Name, e.Address})
	}
	table.Render()

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to print address book: %w", err)
	}

	return nil
}

func (b AddressBook) chain() string {
	switch {
	case b.ChainName != "":
		return b.ChainName
	case b.ChainID != "":
		return "chain id " + b.ChainID
	default:
		return b.ChainSelector
	}
}

// Marshal encodes result in format, one of "json", "yaml" or "toml".
func Marshal(format string, result singleton.Result) ([]byte, error) {
	book := NewAddressBook(result)

	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(book, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(book)
	case "toml":
		return toml.Marshal(book)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Write writes the address book of result to path. The format is taken from the extension of
// path. Missing parent directories are created and an existing file is overwritten.
func Write(path string, result singleton.Result) error {
	b, err := Marshal(strings.TrimPrefix(filepath.Ext(path), "."), result)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err = os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("failed to write address book %s: %w", path, err)
	}

	return nil
}
