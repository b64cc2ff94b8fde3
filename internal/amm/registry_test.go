package amm

import (
	"testing"

	"solana-pool-monitor/internal/domain"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, p := range []domain.Protocol{domain.ProtocolRaydium, domain.ProtocolOrca, domain.ProtocolJupiterV2} {
		if r.AccountLayout(p) == nil {
			t.Errorf("expected account layout for %s", p)
		}
	}

	// Jupiter v6 is a router: instructions yes, pool account no
	if r.AccountLayout(domain.ProtocolJupiterV6) != nil {
		t.Error("jupiter v6 must not have an account layout")
	}
	if len(r.InstructionLayouts(domain.JupiterV6Program)) == 0 {
		t.Error("expected instruction layouts for jupiter v6")
	}

	if len(r.Protocols()) != 3 {
		t.Errorf("expected 3 protocols with account layouts, got %d", len(r.Protocols()))
	}
}

func TestNewRegistry_OverlappingFields(t *testing.T) {
	_, err := NewRegistry([]AccountLayout{
		{
			Protocol: domain.ProtocolRaydium,
			MinLen:   32,
			Fields: []Field{
				{Name: "a", Type: FieldU64, Offset: 0},
				{Name: "b", Type: FieldU64, Offset: 4},
			},
		},
	}, nil)
	if err == nil {
		t.Fatal("expected error for overlapping fields")
	}
}

func TestNewRegistry_FieldPastMinLen(t *testing.T) {
	_, err := NewRegistry([]AccountLayout{
		{
			Protocol: domain.ProtocolRaydium,
			MinLen:   8,
			Fields: []Field{
				{Name: "a", Type: FieldU64, Offset: 4},
			},
		},
	}, nil)
	if err == nil {
		t.Fatal("expected error for field ending past MinLen")
	}
}

func TestNewRegistry_DuplicateField(t *testing.T) {
	_, err := NewRegistry([]AccountLayout{
		{
			Protocol: domain.ProtocolOrca,
			MinLen:   16,
			Fields: []Field{
				{Name: "a", Type: FieldU64, Offset: 0},
				{Name: "a", Type: FieldU64, Offset: 8},
			},
		},
	}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate field name")
	}
}

func TestNewRegistry_DuplicateProtocol(t *testing.T) {
	layout := AccountLayout{
		Protocol: domain.ProtocolOrca,
		MinLen:   8,
		Fields:   []Field{{Name: "a", Type: FieldU64, Offset: 0}},
	}
	_, err := NewRegistry([]AccountLayout{layout, layout}, nil)
	if err == nil {
		t.Fatal("expected error for duplicate protocol")
	}
}

func TestNewRegistry_DuplicateDiscriminator(t *testing.T) {
	_, err := NewRegistry(nil, map[string][]InstructionLayout{
		domain.RaydiumAMMV4Program: {
			{Name: "one", Kind: domain.InstructionSwap, Discriminator: []byte{0x09}, MinLen: 1, PoolAccountIndex: -1},
			{Name: "two", Kind: domain.InstructionSwap, Discriminator: []byte{0x09}, MinLen: 1, PoolAccountIndex: -1},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate discriminator")
	}
}

func TestNewRegistry_UnregisteredProgram(t *testing.T) {
	_, err := NewRegistry(nil, map[string][]InstructionLayout{
		"SomeRandomProgram1111111111111111111111111": {
			{Name: "x", Kind: domain.InstructionSwap, Discriminator: []byte{0x01}, MinLen: 1, PoolAccountIndex: -1},
		},
	})
	if err == nil {
		t.Fatal("expected error for unregistered program")
	}
}
