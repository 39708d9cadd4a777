// Package utils provides utility functions.
package utils

import (
	"os"
	"regexp"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/mitchellh/go-homedir"
	"github.com/muesli/termenv"
)

var yamlPattern = regexp.MustCompile(`(?m)^---\r?\n(\s*\r?\n)?`)

// RemoveFrontmatter removes the front matter header of a markdown file.
func RemoveFrontmatter(content []byte) []byte {
	if frontmatterBoundaries := detectFrontmatter(content); frontmatterBoundaries[0] == 0 {
		return content[frontmatterBoundaries[1]:]
	}
	return content
}

func detectFrontmatter(c []byte) []int {
	if matches := yamlPattern.FindAllIndex(c, 2); len(matches) > 1 {
		return []int{matches[0][0], matches[1][1]}
	}
	return []int{-1, -1}
}

// ExpandPath expands tildes and environment variables.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// GlamourStyle returns a glamour.TermRendererOption based on the given style.
// The auto style follows the terminal background.
func GlamourStyle(style string) glamour.TermRendererOption {
	if style != styles.AutoStyle {
		return glamour.WithStylePath(style)
	}
	if termenv.HasDarkBackground() {
		return glamour.WithStandardStyle(styles.DarkStyle)
	}
	return glamour.WithStandardStyle(styles.LightStyle)
}
