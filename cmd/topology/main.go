// kestrel-topology validates topology and policy documents and prints the
// projection a node would derive from them.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kestrelchain/kestrel-go/model/overlay"
	"github.com/kestrelchain/kestrel-go/network/policy"
	"github.com/kestrelchain/kestrel-go/network/topology"
)

const (
	flagTopology = "topology"
	flagPolicy   = "policy"
	flagSelf     = "self"
	flagTimeout  = "resolve-timeout"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel-topology",
	Short: "inspect kestrel topology and policy documents",
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "validate the documents and print the derived projection",
	RunE:  runCheck,
}

func initFlags(flags *pflag.FlagSet) {
	flags.String(flagTopology, "", "path to the topology document (required)")
	flags.String(flagPolicy, "", "path to the policy document (optional)")
	flags.String(flagSelf, "", "name of the current node within a static node table")
	flags.Duration(flagTimeout, 5*time.Second, "timeout for resolving static route hosts")
}

func init() {
	initFlags(checkCmd.Flags())
	_ = checkCmd.MarkFlagRequired(flagTopology)
	_ = viper.BindPFlags(checkCmd.Flags())

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	raw, err := os.ReadFile(viper.GetString(flagTopology))
	if err != nil {
		return fmt.Errorf("could not read topology document: %w", err)
	}
	doc, err := topology.ParseDocument(raw)
	if err != nil {
		return err
	}

	resolve := func(ctx context.Context, host string) ([]net.IPAddr, error) {
		return net.DefaultResolver.LookupIPAddr(ctx, host)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration(flagTimeout))
	defer cancel()

	interp := topology.NewInterpreter(log, resolve)
	proj, err := interp.Interpret(ctx, doc, viper.GetString(flagSelf))
	if err != nil {
		return err
	}
	if proj.Warnings != nil {
		log.Warn().Err(proj.Warnings).Msg("projection produced warnings")
	}

	fmt.Printf("self class:    %s\n", proj.SelfClass)
	fmt.Printf("run kademlia:  %v\n", proj.RunKademlia)
	if proj.SubscriberClass != nil {
		fmt.Printf("subscribers:   %s\n", *proj.SubscriberClass)
	} else {
		fmt.Printf("subscribers:   none\n")
	}
	for _, class := range overlay.AllNodeClasses() {
		groups := proj.Tiers.ForClass(class)
		if len(groups) == 0 {
			continue
		}
		fmt.Printf("tier %-6s   %d groups, %d peers\n", class, len(groups), len(proj.Tiers.PeersOfClass(class)))
	}
	fmt.Printf("discovery:     %d workers\n", len(proj.Descriptors))

	if policyPath := viper.GetString(flagPolicy); policyPath != "" {
		rawPolicy, err := os.ReadFile(policyPath)
		if err != nil {
			return fmt.Errorf("could not read policy document: %w", err)
		}
		pdoc, err := policy.ParseDocument(rawPolicy)
		if err != nil {
			return err
		}
		if _, err := policy.FromDocument(pdoc, proj.SelfClass); err != nil {
			return err
		}
		fmt.Printf("policy:        ok\n")
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
