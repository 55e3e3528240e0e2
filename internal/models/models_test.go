package models

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
)

func TestParseEquipmentType(t *testing.T) {
	tests := []struct {
		in   string
		want EquipmentType
	}{
		{"harvester", Harvester},
		{"Colhedoras", Harvester},
		{" transbordo ", Transporter},
		{"transporter", Transporter},
	}
	for _, tt := range tests {
		got, err := ParseEquipmentType(tt.in)
		if err != nil {
			t.Fatalf("ParseEquipmentType(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseEquipmentType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseEquipmentType("trator"); !errors.Is(err, ErrUnsupportedEquipment) {
		t.Errorf("expected ErrUnsupportedEquipment, got %v", err)
	}
}

func TestParseRecordKey(t *testing.T) {
	k, err := ParseRecordKey("2024-05-03", "Frente 3", "7032")
	if err != nil {
		t.Fatalf("ParseRecordKey: %v", err)
	}
	want := RecordKey{Date: civil.Date{Year: 2024, Month: 5, Day: 3}, Front: "Frente 3", Machine: 7032}
	if k != want {
		t.Errorf("got %+v, want %+v", k, want)
	}
	if k.String() != "2024-05-03/Frente 3/7032" {
		t.Errorf("String() = %q", k.String())
	}

	for _, bad := range [][3]string{
		{"03/05/2024", "Frente 3", "1"},
		{"2024-05-03", "", "1"},
		{"2024-05-03", "Frente 3", "x"},
	} {
		if _, err := ParseRecordKey(bad[0], bad[1], bad[2]); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
