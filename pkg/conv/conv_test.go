package conv

import "testing"

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2), 2, true},
		{"int", 3, 3, true},
		{"int64", int64(4), 4, true},
		{"bool true", true, 1, true},
		{"bool false", false, 0, true},
		{"string rejected", "5", 0, false},
		{"nil rejected", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat64(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ToFloat64(%v) = (%v, %v), want (%v, %v)",
					tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestConvertSlice(t *testing.T) {
	in := []string{"1.5", "x", "2"}
	out := ConvertSlice(in, func(s string) (float64, bool) {
		switch s {
		case "1.5":
			return 1.5, true
		case "2":
			return 2, true
		}
		return 0, false
	})
	if len(out) != 2 || out[0] != 1.5 || out[1] != 2 {
		t.Errorf("ConvertSlice() = %v, want [1.5 2]", out)
	}
	if ConvertSlice[string, int](nil, nil) != nil {
		t.Error("ConvertSlice(nil) should be nil")
	}
}

func TestConfigGet(t *testing.T) {
	m := map[string]any{"name": "custkit", "count": 3}

	if got := ConfigGet(m, "name", "fallback"); got != "custkit" {
		t.Errorf("ConfigGet(name) = %q", got)
	}
	if got := ConfigGet(m, "missing", "fallback"); got != "fallback" {
		t.Errorf("ConfigGet(missing) = %q, want fallback", got)
	}
	// 类型不符时走默认值
	if got := ConfigGet(m, "count", "fallback"); got != "fallback" {
		t.Errorf("ConfigGet(count as string) = %q, want fallback", got)
	}
}

func TestSliceAnyToString(t *testing.T) {
	in := []any{"a", 2.0, 3, []string{"nested"}}
	out := SliceAnyToString(in)
	want := []string{"a", "2", "3"}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
}
