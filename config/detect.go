package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Project holds metadata detected from the working directory.
type Project struct {
	// Name is the package name, or the directory name as a fallback.
	Name        string
	Description string
	Version     string
}

// Detect reads project metadata from package.json in rootDir.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{}
	if name, desc, version, err := parsePackageJSON(filepath.Join(absRoot, "package.json")); err == nil {
		p.Name, p.Description, p.Version = name, desc, version
	}

	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	return p
}

func parsePackageJSON(path string) (name, description, version string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", "", err
	}
	var pkg struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Version     string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", "", "", err
	}
	return pkg.Name, pkg.Description, pkg.Version, nil
}

// ApplyProject fills project metadata still unset after ApplyEnv from
// detected values.
func (f *File) ApplyProject(p *Project) {
	if f.ProjectName == "" {
		f.ProjectName = p.Name
	}
	if f.ProjectDescription == "" {
		f.ProjectDescription = p.Description
	}
}
