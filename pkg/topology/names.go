package topology

import (
	"regexp"
	"strings"

	"github.com/Adirelle/docker-graph/pkg/events"
)

var idRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// isID reports whether s looks like a full Docker object id.
func isID(s string) bool { return idRe.MatchString(s) }

// shortIDOrName shortens full ids to their first 8 characters and returns
// anything else unchanged.
func shortIDOrName(s string) string {
	if isID(s) {
		return s[:8]
	}
	return s
}

// shortName shortens ids like shortIDOrName and strips the compose project
// prefix ("shop_default" → "default", "shop-web-1" → "web-1").
func shortName(s string, project *events.Project) string {
	if isID(s) {
		return s[:8]
	}
	if project != nil && project.Name != "" {
		for _, sep := range []string{"_", "-"} {
			if rest, ok := strings.CutPrefix(s, project.Name+sep); ok && rest != "" {
				return rest
			}
		}
	}
	return s
}

// shortPath renders path relative to the compose project working directory
// when it lies inside it.
func shortPath(path string, project *events.Project) string {
	if project == nil || project.WorkingDir == "" {
		return path
	}
	dir := strings.TrimSuffix(project.WorkingDir, "/")
	if path == dir {
		return "."
	}
	if rest, ok := strings.CutPrefix(path, dir+"/"); ok {
		return "./" + rest
	}
	return path
}

// imageRef is an image reference split into its parts.
type imageRef struct {
	Registry string
	Name     string
	Tag      string
}

// parseImage splits an image reference. The registry defaults to docker.io
// and the tag to latest; digests are dropped.
func parseImage(ref string) imageRef {
	name, _, _ := strings.Cut(ref, "@")

	tag := ""
	if i := strings.LastIndex(name, ":"); i > strings.LastIndex(name, "/") {
		name, tag = name[:i], name[i+1:]
	}

	registry := ""
	if first, rest, ok := strings.Cut(name, "/"); ok &&
		(strings.ContainsAny(first, ".:") || first == "localhost") {
		registry, name = first, rest
	}

	if registry == "" {
		registry = "docker.io"
	}
	if tag == "" {
		tag = "latest"
	}
	return imageRef{Registry: registry, Name: name, Tag: tag}
}

// tooltip renders key/value pairs as "k: v" lines joined by <br/>.
func tooltip(pairs ...[2]string) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, p[0]+": "+p[1])
	}
	return strings.Join(lines, "<br/>")
}
