// Package project loads and resolves project descriptors and source
// files. Descriptors are JSON (plc.json); a YAML variant (plc.yaml) is
// accepted with identical fields.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatOption selects the kind of artifact a build produces.
type FormatOption string

const (
	FormatObject      FormatOption = "Object"
	FormatStatic      FormatOption = "Static"
	FormatShared      FormatOption = "Shared"
	FormatRelocatable FormatOption = "Relocatable"
	FormatBitcode     FormatOption = "Bitcode"
	FormatIR          FormatOption = "IR"
)

// OutputExtension maps the format to the produced file extension.
func (f FormatOption) OutputExtension() string {
	switch f {
	case FormatBitcode:
		return ".bc"
	case FormatIR:
		return ".ll"
	case FormatShared:
		return ".so"
	case FormatStatic:
		return ".a"
	case FormatObject, FormatRelocatable:
		return ".o"
	default:
		return ""
	}
}

// FormatFromExtension derives the output kind from a requested output
// path: .o object, .bc bitcode, .ll/.ir textual IR, .so shared, .a
// archive. Extensionless paths and any other extension map to
// Relocatable; no executable output kind exists.
func FormatFromExtension(path string) FormatOption {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bc":
		return FormatBitcode
	case ".ll", ".ir":
		return FormatIR
	case ".so":
		return FormatShared
	case ".a":
		return FormatStatic
	case ".o":
		return FormatObject
	default:
		return FormatRelocatable
	}
}

// LinkagePackage describes how a library is packaged with the build.
type LinkagePackage string

const (
	PackageCopy   LinkagePackage = "Copy"
	PackageLocal  LinkagePackage = "Local"
	PackageSystem LinkagePackage = "System"
	PackageStatic LinkagePackage = "Static"
)

// LibraryConfig is one precompiled library of the project.
type LibraryConfig struct {
	Name          string         `json:"name" yaml:"name"`
	Path          string         `json:"path" yaml:"path"`
	Package       LinkagePackage `json:"package" yaml:"package"`
	IncludePath   []string       `json:"include_path" yaml:"include_path"`
	Architectures []string       `json:"architectures" yaml:"architectures"`
}

// ProjectConfig is the parsed project descriptor.
type ProjectConfig struct {
	Name            string          `json:"name" yaml:"name"`
	Files           []string        `json:"files" yaml:"files"`
	CompileType     FormatOption    `json:"compile_type" yaml:"compile_type"`
	Libraries       []LibraryConfig `json:"libraries" yaml:"libraries"`
	PackageCommands []string        `json:"package_commands" yaml:"package_commands"`
}

// LoadConfig reads, parses and resolves a descriptor file. `$VAR` tokens
// in string fields are substituted from the environment at load time;
// unknown variables leave the token literal. Relative paths resolve
// against the descriptor's directory.
func LoadConfig(path string) (*ProjectConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read project descriptor %s: %w", path, err)
	}
	config, err := ParseConfig(content, strings.HasSuffix(strings.ToLower(path), ".yaml") ||
		strings.HasSuffix(strings.ToLower(path), ".yml"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse project descriptor %s: %w", path, err)
	}
	config.resolve(filepath.Dir(path))
	return config, nil
}

// ParseConfig decodes descriptor content without path resolution.
func ParseConfig(content []byte, isYaml bool) (*ProjectConfig, error) {
	config := &ProjectConfig{}
	if isYaml {
		if err := yaml.Unmarshal(content, config); err != nil {
			return nil, err
		}
	} else {
		if err := json.Unmarshal(content, config); err != nil {
			return nil, err
		}
	}
	if config.CompileType == "" {
		config.CompileType = FormatObject
	}
	return config, nil
}

// resolve substitutes environment variables and anchors relative paths.
func (c *ProjectConfig) resolve(root string) {
	c.Name = substituteEnv(c.Name)
	for i, file := range c.Files {
		c.Files[i] = resolvePath(root, substituteEnv(file))
	}
	for i := range c.Libraries {
		lib := &c.Libraries[i]
		lib.Name = substituteEnv(lib.Name)
		lib.Path = resolvePath(root, substituteEnv(lib.Path))
		for j, include := range lib.IncludePath {
			lib.IncludePath[j] = resolvePath(root, substituteEnv(include))
		}
	}
	for i, cmd := range c.PackageCommands {
		c.PackageCommands[i] = substituteEnv(cmd)
	}
}

func resolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// substituteEnv replaces `$VAR` tokens with environment values, leaving
// tokens for unset variables untouched.
func substituteEnv(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '$' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		j := i + 1
		for j < len(s) && (isEnvChar(s[j])) {
			j++
		}
		if j == i+1 {
			sb.WriteByte('$')
			i++
			continue
		}
		name := s[i+1 : j]
		if value, ok := os.LookupEnv(name); ok {
			sb.WriteString(value)
		} else {
			sb.WriteString(s[i:j])
		}
		i = j
	}
	return sb.String()
}

func isEnvChar(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

// ExpandFiles globs the descriptor's file patterns into concrete paths,
// keeping the supplied order stable. Patterns without matches are kept
// verbatim so that a missing file surfaces as an I/O error later.
func (c *ProjectConfig) ExpandFiles() []string {
	var out []string
	for _, pattern := range c.Files {
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			out = append(out, pattern)
			continue
		}
		out = append(out, matches...)
	}
	return out
}
