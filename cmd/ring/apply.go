package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kemeter/ring/internal/client"
	"github.com/kemeter/ring/internal/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a deployment manifest",
	Long: `Apply submits every deployment declared in a YAML manifest to the
server. ${VAR} references in the manifest are expanded from the environment,
optionally loaded from an env file first.

Examples:
  # Apply a manifest
  ring apply -f deployments.yaml

  # Expand variables from a file and validate without submitting
  ring apply -f deployments.yaml -e production.env --dry-run`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "Manifest file to apply (required)")
	applyCmd.Flags().StringP("env-file", "e", "", "File with KEY=VALUE pairs exported before expansion")
	applyCmd.Flags().Bool("dry-run", false, "Validate the manifest without submitting it")
	applyCmd.Flags().Bool("force", false, "Re-apply even when an identical deployment is already active")
	applyCmd.Flags().Bool("verbose", false, "Print details for every applied deployment")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	envFile, _ := cmd.Flags().GetString("env-file")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if envFile != "" {
		data, err := os.ReadFile(envFile)
		if err != nil {
			return fmt.Errorf("read env file: %w", err)
		}
		vars, err := parseEnvFile(data)
		if err != nil {
			return fmt.Errorf("env file %s: %w", envFile, err)
		}
		for k, v := range vars {
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	deployments, err := loadManifest(raw)
	if err != nil {
		return err
	}
	if len(deployments) == 0 {
		return fmt.Errorf("manifest %s declares no deployments", file)
	}

	if dryRun {
		tw := newTable(os.Stdout)
		fmt.Fprintln(tw, "NAMESPACE\tNAME\tKIND\tIMAGE\tREPLICAS")
		for _, d := range deployments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", d.Namespace, d.Name, d.Kind, d.Image, d.Replicas)
		}
		tw.Flush()
		fmt.Printf("✓ Manifest valid, %d deployment(s) would be applied\n", len(deployments))
		return nil
	}

	api, err := newAPIClient()
	if err != nil {
		return err
	}
	for _, d := range deployments {
		created, err := api.CreateDeployment(cmd.Context(), d, force)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			fmt.Printf("- %s/%s unchanged (use --force to re-apply)\n", d.Namespace, d.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("apply %s/%s: %w", d.Namespace, d.Name, err)
		}
		fmt.Printf("✓ Applied %s/%s (%s)\n", created.Namespace, created.Name, created.ID)
		if verbose {
			fmt.Printf("  kind=%s image=%s replicas=%d status=%s\n",
				created.Kind, created.Image, created.Replicas, created.Status)
		}
	}
	return nil
}

// loadManifest expands ${VAR} references, decodes the deployments map and
// validates every entry. The map key is the deployment name.
func loadManifest(raw []byte) ([]types.Deployment, error) {
	expanded, err := envsubst.Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("expand variables: %w", err)
	}
	var m struct {
		Deployments map[string]types.Deployment `yaml:"deployments"`
	}
	if err := yaml.Unmarshal(expanded, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	names := make([]string, 0, len(m.Deployments))
	for name := range m.Deployments {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]types.Deployment, 0, len(names))
	for _, name := range names {
		d := m.Deployments[name]
		d.Name = name
		d.Normalize()
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("deployment %s: %w", name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// parseEnvFile reads KEY=VALUE lines; blank lines and # comments are skipped.
func parseEnvFile(data []byte) (map[string]string, error) {
	vars := map[string]string{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE, got %q", i+1, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", i+1)
		}
		vars[key] = strings.TrimSpace(value)
	}
	return vars, nil
}
