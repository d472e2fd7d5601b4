package utils

import "testing"

func TestMergeLabel(t *testing.T) {
	tests := []struct {
		name     string
		existing Label
		incoming Label
		want     Label
	}{
		{
			name:     "empty existing yields incoming",
			existing: Label{},
			incoming: Label{Value: "a", Source: "r1"},
			want:     Label{Value: "a", Source: "r1"},
		},
		{
			name:     "empty incoming keeps existing",
			existing: Label{Value: "a", Source: "r1"},
			incoming: Label{},
			want:     Label{Value: "a", Source: "r1"},
		},
		{
			name:     "both set accumulate",
			existing: Label{Value: "a", Source: "r1"},
			incoming: Label{Value: "b", Source: "r2"},
			want:     Label{Value: "a|b", Source: "r1,r2"},
		},
		{
			name:     "missing existing source takes incoming",
			existing: Label{Value: "a"},
			incoming: Label{Value: "b", Source: "r2"},
			want:     Label{Value: "a|b", Source: "r2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeLabel(tt.existing, tt.incoming); got != tt.want {
				t.Errorf("MergeLabel() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
