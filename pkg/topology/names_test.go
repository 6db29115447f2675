package topology

import (
	"testing"

	"github.com/Adirelle/docker-graph/pkg/events"
)

func TestParseImage(t *testing.T) {
	tests := []struct {
		ref  string
		want imageRef
	}{
		{"nginx", imageRef{"docker.io", "nginx", "latest"}},
		{"nginx:1.25", imageRef{"docker.io", "nginx", "1.25"}},
		{"library/redis:7", imageRef{"docker.io", "library/redis", "7"}},
		{"ghcr.io/acme/api:2", imageRef{"ghcr.io", "acme/api", "2"}},
		{"registry.local:5000/team/app", imageRef{"registry.local:5000", "team/app", "latest"}},
		{"localhost/app:dev", imageRef{"localhost", "app", "dev"}},
		{"alpine@sha256:abcd", imageRef{"docker.io", "alpine", "latest"}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			if got := parseImage(tt.ref); got != tt.want {
				t.Errorf("parseImage(%q) = %+v, want %+v", tt.ref, got, tt.want)
			}
		})
	}
}

func TestShortName(t *testing.T) {
	shop := &events.Project{Name: "shop"}
	longID := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	tests := []struct {
		in      string
		project *events.Project
		want    string
	}{
		{longID, nil, "01234567"},
		{longID, shop, "01234567"},
		{"shop_default", shop, "default"},
		{"shop-web-1", shop, "web-1"},
		{"shop_", shop, "shop_"},
		{"shopping", shop, "shopping"},
		{"shop_default", nil, "shop_default"},
	}

	for _, tt := range tests {
		if got := shortName(tt.in, tt.project); got != tt.want {
			t.Errorf("shortName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShortPath(t *testing.T) {
	shop := &events.Project{Name: "shop", WorkingDir: "/srv/shop"}
	tests := []struct {
		path    string
		project *events.Project
		want    string
	}{
		{"/srv/shop", shop, "."},
		{"/srv/shop/conf/nginx", shop, "./conf/nginx"},
		{"/srv/shopping", shop, "/srv/shopping"},
		{"/etc/hosts", shop, "/etc/hosts"},
		{"/srv/shop/conf", nil, "/srv/shop/conf"},
		{"/srv/shop/x", &events.Project{WorkingDir: "/srv/shop/"}, "./x"},
	}

	for _, tt := range tests {
		if got := shortPath(tt.path, tt.project); got != tt.want {
			t.Errorf("shortPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestShortIDOrName(t *testing.T) {
	if got := shortIDOrName("web"); got != "web" {
		t.Errorf("shortIDOrName(web) = %q, want web", got)
	}
	upper := "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF"
	if got := shortIDOrName(upper); got != upper {
		t.Errorf("shortIDOrName(upper hex) = %q, want unchanged", got)
	}
}
