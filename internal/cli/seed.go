package cli

import (
	"context"
	"fmt"
	"os"

	"dira-go/internal/model"
	"dira-go/internal/repository"
	"dira-go/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Organisations []seedOrganisation `yaml:"organisations"`
}

type seedOrganisation struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	ContactEmail string   `yaml:"contact_email"`
	ContactAPI   string   `yaml:"contact_api"`
	Facilities   []string `yaml:"facilities"`
}

// loadSeedFile parses an organisations YAML file.
func loadSeedFile(path string) ([]model.Organisation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	orgs := make([]model.Organisation, len(f.Organisations))
	for i, o := range f.Organisations {
		orgs[i] = model.Organisation{
			Name:         o.Name,
			Type:         o.Type,
			ContactEmail: o.ContactEmail,
			Facilities:   o.Facilities,
		}
		if o.ContactAPI != "" {
			api := o.ContactAPI
			orgs[i].ContactAPI = &api
		}
	}
	return orgs, nil
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or update the organisations reports are routed to",
		Long:  `Seed upserts organisations by name, so running it twice leaves one row per organisation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			orgs, err := loadSeedFile(file)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := service.NewOrganisationService(repository.NewOrganisationRepository(a.db))
			n, err := svc.Seed(ctx, orgs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d organisations\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "./configs/organisations.yaml", "organisations YAML file")
	return cmd
}
