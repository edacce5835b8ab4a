package expect

import "testing"

func TestParseLineTag(t *testing.T) {
	tests := []struct {
		input   string
		want    LineTag
		wantErr bool
	}{
		{input: "[line 3]", want: LineTag{Line: 3}},
		{input: "[c line 12]", want: LineTag{Lang: "c", Line: 12}},
		{input: "[java line 7]", want: LineTag{Lang: "java", Line: 7}},
		{input: "  [line 1]  ", want: LineTag{Line: 1}},
		{input: "", wantErr: true},
		{input: "[line]", wantErr: true},
		{input: "[line 0]", wantErr: true},
		{input: "[line x]", wantErr: true},
		{input: "[c java line 3]", wantErr: true},
		{input: "line 3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLineTag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseLineTag(%q) = %+v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLineTag(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLineTag(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLineTagString(t *testing.T) {
	if got := (LineTag{Line: 4}).String(); got != "[line 4]" {
		t.Errorf("String() = %q", got)
	}
	if got := (LineTag{Lang: "c", Line: 4}).String(); got != "[c line 4]" {
		t.Errorf("String() = %q", got)
	}
}
