package bot

import (
	"encoding/json"
	"testing"
)

func TestContentMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		turn Turn
		want string
	}{
		{
			name: "plain text marshals as string",
			turn: TextTurn(RoleUser, "hello there"),
			want: `{"role":"user","content":"hello there"}`,
		},
		{
			name: "image with text marshals as parts",
			turn: UserImageTurn("look", "data:image/png;base64,AAAA"),
			want: `{"role":"user","content":[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]}`,
		},
		{
			name: "image without text omits the text part",
			turn: UserImageTurn("", "data:image/jpeg;base64,BBBB"),
			want: `{"role":"user","content":[{"type":"image_url","image_url":{"url":"data:image/jpeg;base64,BBBB"}}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.turn)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestContentEmpty(t *testing.T) {
	if !(Content{}).Empty() {
		t.Error("zero Content should be empty")
	}
	if (Content{Text: "x"}).Empty() {
		t.Error("text content should not be empty")
	}
	if (Content{Parts: []Part{{Type: "text", Text: "x"}}}).Empty() {
		t.Error("parts content should not be empty")
	}
}
