package mcpserver

import "encoding/json"

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// PageSpeedKeyEnv names the environment variable holding the PageSpeed API key.
const PageSpeedKeyEnv = "QUARTERLY_PAGESPEED_API_KEY"

// Manifest is the registry server.json document.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository contains source repository information.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes how to install and run the server.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	RuntimeArguments     []Argument    `json:"runtimeArguments,omitempty"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []Environment `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument is a command-line argument passed to the runtime or package.
type Argument struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// Environment is an environment variable the package reads.
type Environment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
	IsSecret    bool   `json:"isSecret"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

// GenerateManifest creates the server.json manifest for a release.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/quarterly",
		Description: "Quarterly website analytics reports for nonprofits: period comparisons, benchmarks, and plain-language insights",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/quarterly",
			Source: "github",
		},
		Packages: []Package{
			{
				RegistryType: "oci",
				Identifier:   "ghcr.io/panbanda/quarterly:" + version,
				RuntimeArguments: []Argument{
					{
						Type:        "named",
						Name:        "-v",
						Value:       "${PWD}:/work",
						Description: "Mount a directory containing data/ snapshots and clients/ profiles",
					},
				},
				PackageArguments: []Argument{
					{Type: "positional", Value: "mcp"},
				},
				EnvironmentVariables: []Environment{
					{
						Name:        PageSpeedKeyEnv,
						Description: "Google PageSpeed Insights API key for site speed sections",
						IsSecret:    true,
					},
				},
				Transport: Transport{Type: "stdio"},
			},
		},
	}

	return json.MarshalIndent(manifest, "", "  ")
}
