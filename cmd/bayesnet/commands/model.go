/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: model.go
Description: Model utility commands: inspect prints every CPD and Markov blanket, check
reloads and revalidates a model, models lists or deletes stored models and describe-model
prints a model description as YAML.
*/

package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kleascm/bayesnet/pkg/config"
	"github.com/kleascm/bayesnet/pkg/store"
	"github.com/spf13/cobra"
)

// RunInspect prints the structure and CPD tables of a model
func RunInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()
	out := cmd.OutOrStdout()

	net, name, err := loadNetwork(cmd.Context(), cmd, cfg, log.GetLogger())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Model %s\n", name)
	fmt.Fprintf(out, "Topological order: %s\n\n", strings.Join(net.TopologicalOrder(), " -> "))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tSTATES\tPARENTS\tMARKOV BLANKET")
	for _, v := range net.Variables() {
		blanket, err := net.MarkovBlanket(v.Name())
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Name(), strings.Join(v.States(), ","),
			strings.Join(net.Parents(v.Name()), ","), strings.Join(blanket, ","))
	}
	tw.Flush()
	fmt.Fprintln(out)

	for _, cpd := range net.CPDs() {
		fmt.Fprintln(out, cpd.String())
	}
	return nil
}

// RunCheck reloads a model, which revalidates it, and reruns the normalization check
func RunCheck(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()

	net, name, err := loadNetwork(cmd.Context(), cmd, cfg, log.GetLogger())
	if err != nil {
		return err
	}
	if err := net.Check(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Model %s is valid: %d variables, %d edges, every CPD column sums to 1 within %g\n",
		name, len(net.Names()), len(net.Edges()), net.Tolerance())
	return nil
}

// RunModels lists stored models, or deletes one with --delete
func RunModels(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Close()
	out := cmd.OutOrStdout()

	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	if id, _ := cmd.Flags().GetString("delete"); id != "" {
		if err := s.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %s\n", id)
		return nil
	}

	records, err := s.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No models in %s\n", s.Path())
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVARIABLES\tCREATED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", rec.ID, rec.Name, rec.Variables, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// RunDescribeModel prints a model description, the built-in one by default
func RunDescribeModel(cmd *cobra.Command, args []string) error {
	spec := config.TitanicModel()
	if path, _ := cmd.Flags().GetString("model-spec"); path != "" {
		var err error
		if spec, err = config.LoadModelSpec(path); err != nil {
			return err
		}
	}
	data, err := spec.YAML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
