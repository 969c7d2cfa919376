package view

import "testing"

func TestTableCursor_SetCursor(t *testing.T) {
	var c TableCursor
	c.SetCursor(5, 3)
	if c.Cursor() != 2 {
		t.Errorf("Cursor() = %d, want 2", c.Cursor())
	}
	c.SetCursor(-1, 3)
	if c.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", c.Cursor())
	}
	c.SetCursor(4, 0)
	if c.Cursor() != 0 {
		t.Errorf("Cursor() on empty data = %d, want 0", c.Cursor())
	}
}

func TestTableCursor_Follow(t *testing.T) {
	tests := []struct {
		name          string
		scrollTop     int
		top, bottom   int
		contentHeight int
		want          int
	}{
		{"visible row keeps position", 0, 3, 4, 100, 0},
		{"row below scrolls down", 0, 12, 13, 100, 3},
		{"row above scrolls up", 50, 20, 21, 100, 20},
		{"tall row shows its top", 0, 5, 30, 100, 5},
		{"clamped to content", 0, 98, 99, 100, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := TableCursor{scrollTop: tt.scrollTop}
			c.SetBodyHeight(10)
			c.Follow(tt.top, tt.bottom, tt.contentHeight)
			if c.ScrollTop() != tt.want {
				t.Errorf("ScrollTop() = %d, want %d", c.ScrollTop(), tt.want)
			}
		})
	}
}

func TestTableCursor_Scroll(t *testing.T) {
	var c TableCursor
	c.SetBodyHeight(10)

	c.Scroll(3, 25)
	if c.ScrollTop() != 3 {
		t.Errorf("ScrollTop() = %d, want 3", c.ScrollTop())
	}
	c.Scroll(100, 25)
	if c.ScrollTop() != 15 {
		t.Errorf("ScrollTop() = %d, want 15", c.ScrollTop())
	}
	c.Scroll(-100, 25)
	if c.ScrollTop() != 0 {
		t.Errorf("ScrollTop() = %d, want 0", c.ScrollTop())
	}
	c.SetScrollTop(7, 5)
	if c.ScrollTop() != 0 {
		t.Errorf("short content: ScrollTop() = %d, want 0", c.ScrollTop())
	}
}
