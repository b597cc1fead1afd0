package model

import "testing"

func TestURL_Domain(t *testing.T) {
	u := URL{Host: []string{"api", "example", "com"}}
	if got, want := u.Domain(), "api.example.com"; got != want {
		t.Fatalf("Domain = %q, want %q", got, want)
	}
}

func TestURL_PathString(t *testing.T) {
	tests := []struct {
		path []string
		want string
	}{
		{nil, "/"},
		{[]string{"v1"}, "/v1"},
		{[]string{"v1", "users", ":id"}, "/v1/users/:id"},
	}
	for _, tt := range tests {
		u := URL{Path: tt.path}
		if got := u.PathString(); got != tt.want {
			t.Fatalf("PathString(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestURL_PortOrDefault(t *testing.T) {
	tests := []struct {
		protocol string
		port     string
		want     string
	}{
		{"http", "", "80"},
		{"https", "", "443"},
		{"ftp", "", "80"},
		{"", "", "80"},
		{"https", "8443", "8443"},
		{"http", "8080", "8080"},
	}
	for _, tt := range tests {
		u := URL{Protocol: tt.protocol, Port: tt.port}
		if got := u.PortOrDefault(); got != tt.want {
			t.Fatalf("PortOrDefault(%q,%q) = %q, want %q", tt.protocol, tt.port, got, tt.want)
		}
	}
}
