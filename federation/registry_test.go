package federation

import (
	"testing"

	"github.com/distsocial/streamnode/util"
	"golang.org/x/crypto/bcrypt"
)

func testConf(nodes ...util.RemoteNodeConf) *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.NodeURL = "http://local.example.com"
	conf.Conf.Nodes = nodes
	return conf
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(testConf(
		util.RemoteNodeConf{URL: "http://node2.example.com", OutUsername: "us", OutPassword: "pw"},
		util.RemoteNodeConf{URL: "http://node3.example.com"},
	))

	if len(registry.Nodes()) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(registry.Nodes()))
	}

	if registry.Nodes()[0].OutUsername != "us" {
		t.Errorf("Expected OutUsername 'us', got '%s'", registry.Nodes()[0].OutUsername)
	}
}

func TestNodeForURI(t *testing.T) {
	registry := NewRegistry(testConf(
		util.RemoteNodeConf{URL: "http://node2.example.com"},
		util.RemoteNodeConf{URL: "https://node3.example.com"},
	))

	tests := []struct {
		name    string
		uri     string
		wantURL string
	}{
		{"exact host", "http://node2.example.com/author/abc/", "http://node2.example.com"},
		{"https uri against http node", "https://node2.example.com/author/abc/", "http://node2.example.com"},
		{"second node", "https://node3.example.com/posts/x/", "https://node3.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := registry.NodeForURI(tt.uri)
			if node == nil {
				t.Fatal("Expected node, got nil")
			}
			if node.URL != tt.wantURL {
				t.Errorf("Expected node %s, got %s", tt.wantURL, node.URL)
			}
		})
	}
}

func TestNodeForURIUnknownHost(t *testing.T) {
	registry := NewRegistry(testConf(
		util.RemoteNodeConf{URL: "http://node2.example.com"},
	))

	if node := registry.NodeForURI("http://stranger.example.com/author/abc/"); node != nil {
		t.Errorf("Expected nil for unknown host, got %v", node)
	}
	if node := registry.NodeForURI("not a uri"); node != nil {
		t.Errorf("Expected nil for unparseable URI, got %v", node)
	}
}

func TestCheckInbound(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	registry := NewRegistry(testConf(
		util.RemoteNodeConf{URL: "http://node2.example.com", InUsername: "node2", InPasswordHash: string(hash)},
	))

	if !registry.CheckInbound("node2", "sekrit") {
		t.Error("Expected valid credentials to pass")
	}
	if registry.CheckInbound("node2", "wrong") {
		t.Error("Expected wrong password to fail")
	}
	if registry.CheckInbound("nobody", "sekrit") {
		t.Error("Expected unknown username to fail")
	}
}
