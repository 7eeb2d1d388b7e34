// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

/*
*
The file where main is located, as an example
 1. keygen writes a party file holding the party's MAC key share
 2. deal shares public values among the party files, standing in for preprocessing
 3. run connects to the other parties, opens the dealt values and checks their MACs
*/
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"MPC_SPDZ/communication"
	"MPC_SPDZ/internal/save"
	"MPC_SPDZ/pkg/party"
	"MPC_SPDZ/pkg/protocol"
	"MPC_SPDZ/pkg/ring"
	"MPC_SPDZ/pkg/share"
	"MPC_SPDZ/protocols"
	"MPC_SPDZ/protocols/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "mpcnode",
		Short:        "Open SPDZ-authenticated values and check their MACs",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	root.AddCommand(keygenCmd(), dealCmd(), runCmd())
	return root
}

// keygenCmd creates a party file with a fresh MAC key share, optionally derived from a mnemonic.
func keygenCmd() *cobra.Command {
	var (
		id          uint16
		n           int
		ringName    string
		out         string
		mnemonic    string
		newMnemonic bool
		echo        bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a party file holding a MAC key share",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := ring.ByName(ringName)
			if err != nil {
				return fmt.Errorf("%w, available: %s", err, strings.Join(ring.Names(), ", "))
			}
			if newMnemonic {
				if mnemonic, err = share.NewMnemonic(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), mnemonic)
			}
			keyShare := share.NewKeyShare(r, rand.Reader)
			if mnemonic != "" {
				if keyShare, err = share.KeyShareFromMnemonic(r, mnemonic, ""); err != nil {
					return err
				}
			}
			c := &config.Config{
				ID:       party.ID(id),
				Parties:  party.Sequential(n),
				Ring:     r,
				KeyShare: keyShare,
			}
			if echo {
				c.TwoParty = config.EchoAlways
			}
			if err = c.Validate(); err != nil {
				return err
			}
			return save.SavePartyFile(&save.PartyFile{Config: c}, out)
		},
	}
	cmd.Flags().Uint16Var(&id, "id", 1, "ID of the party, in [1, parties]")
	cmd.Flags().IntVar(&n, "parties", 3, "number of parties")
	cmd.Flags().StringVar(&ringName, "ring", ring.Z2k.Name(), "ring of the shared values")
	cmd.Flags().StringVarP(&out, "out", "o", "party.cbor", "party file to write")
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "derive the key share from this BIP-39 mnemonic")
	cmd.Flags().BoolVar(&newMnemonic, "new-mnemonic", false, "print a fresh mnemonic and derive the key share from it")
	cmd.Flags().BoolVar(&echo, "echo-two-party", false, "validate broadcasts even with two parties")
	cmd.MarkFlagsMutuallyExclusive("mnemonic", "new-mnemonic")
	return cmd
}

// dealCmd appends authenticated sharings of public values to every party file.
func dealCmd() *cobra.Command {
	var values string
	cmd := &cobra.Command{
		Use:   "deal [party files...]",
		Short: "Share public values among the parties, acting as a trusted dealer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, files []string) error {
			f, err := save.LoadPartyFile(files[0])
			if err != nil {
				return err
			}
			xs, err := parseValues(f.Config.Ring, values)
			if err != nil {
				return err
			}
			return save.Deal(files, xs)
		},
	}
	cmd.Flags().StringVar(&values, "values", "5,12,9", "comma separated values to share")
	return cmd
}

// runCmd opens the dealt values with the other parties and checks them.
func runCmd() *cobra.Command {
	var (
		configPath string
		sessionID  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the dealt values and run the MAC check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			localConfig, err := communication.LoadConfig(configPath)
			if err != nil {
				return err
			}
			f, err := save.LoadPartyFile(localConfig.KeyShareFile)
			if err != nil {
				return err
			}
			if err = checkParty(localConfig, f.Config); err != nil {
				return err
			}
			if len(f.Values) == 0 {
				return errors.New("no values were dealt to this party")
			}
			if f.Config.Ring.Overflow() && len(f.Masks) != len(f.Values) {
				return fmt.Errorf("%d masks for %d values, deal again", len(f.Masks), len(f.Values))
			}

			localConn, err := communication.NewLocalConn(localConfig)
			if err != nil {
				return err
			}
			defer localConn.Close()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err = localConn.Connect(ctx); err != nil {
				return err
			}

			store := share.NewOpenedValueStore()
			res, err := protocol.Run(ctx, protocols.OpenAndCheck(f.Config, f.Values, f.Masks, store), []byte(sessionID), localConn)
			if err != nil {
				var protocolErr protocol.Error
				if errors.As(err, &protocolErr) && len(protocolErr.Culprits) > 0 {
					log.Errorf("culprits: %v", protocolErr.Culprits)
				}
				return err
			}
			opened := res.(*protocols.OpenResult)
			for i, x := range opened.Opened {
				fmt.Fprintf(cmd.OutOrStdout(), "value %d: %v\n", i, x)
			}
			log.Infof("checked %d values", opened.Checked)
			return store.Close()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "node.yaml", "node configuration, YAML or JSON")
	cmd.Flags().StringVar(&sessionID, "session", "mpcnode", "session id, shared by all parties of a run")
	return cmd
}

// checkParty makes sure the network configuration and the party file describe the same party.
func checkParty(localConfig *communication.LocalConfig, c *config.Config) error {
	if localConfig.LocalID != c.ID {
		return fmt.Errorf("party file belongs to %v, not %v", c.ID, localConfig.LocalID)
	}
	ids := localConfig.PartyIDs()
	if len(ids) != len(c.Parties) || !c.Parties.Contains(ids...) {
		return fmt.Errorf("party file expects parties %v, configured %v", c.Parties, ids)
	}
	if localConfig.Ring != "" && localConfig.Ring != c.Ring.Name() {
		return fmt.Errorf("party file uses ring %s, configured %s", c.Ring.Name(), localConfig.Ring)
	}
	if localConfig.EchoTwoParty {
		c.TwoParty = config.EchoAlways
	}
	return nil
}

func parseValues(r ring.Ring, values string) ([]ring.Element, error) {
	var xs []ring.Element
	for _, v := range strings.Split(values, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		x, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", v, err)
		}
		xs = append(xs, r.FromUint64(x))
	}
	if len(xs) == 0 {
		return nil, errors.New("no values to share")
	}
	return xs, nil
}
