package view

// TableCursor tracks the cursor row and the line-based scroll position of a
// table whose rows may carry detail panels of varying height.
type TableCursor struct {
	cursor     int
	scrollTop  int
	bodyHeight int
}

// Cursor returns the current cursor position.
func (c *TableCursor) Cursor() int {
	return c.cursor
}

// SetCursor sets the cursor position, clamping to valid range [0, dataLen-1].
func (c *TableCursor) SetCursor(n int, dataLen int) {
	if dataLen == 0 {
		c.cursor = 0
		return
	}
	if n < 0 {
		n = 0
	}
	if n >= dataLen {
		n = dataLen - 1
	}
	c.cursor = n
}

// ScrollTop returns the first visible content line.
func (c *TableCursor) ScrollTop() int {
	return c.scrollTop
}

// BodyHeight returns the number of visible content lines.
func (c *TableCursor) BodyHeight() int {
	return c.bodyHeight
}

// SetBodyHeight sets the number of visible content lines.
func (c *TableCursor) SetBodyHeight(h int) {
	c.bodyHeight = max(h, 1)
}

// Follow scrolls so that the content lines [top, bottom) of the cursor row
// are visible. When the row is taller than the body its top wins.
func (c *TableCursor) Follow(top, bottom, contentHeight int) {
	if bottom > c.scrollTop+c.bodyHeight {
		c.scrollTop = bottom - c.bodyHeight
	}
	if top < c.scrollTop {
		c.scrollTop = top
	}
	c.clampScrollTop(contentHeight)
}

// Scroll moves the scroll position by delta lines (for mouse wheel).
func (c *TableCursor) Scroll(delta, contentHeight int) {
	c.scrollTop += delta
	c.clampScrollTop(contentHeight)
}

// SetScrollTop moves the scroll position to an absolute line.
func (c *TableCursor) SetScrollTop(top, contentHeight int) {
	c.scrollTop = top
	c.clampScrollTop(contentHeight)
}

func (c *TableCursor) clampScrollTop(contentHeight int) {
	maxTop := contentHeight - c.bodyHeight
	if maxTop < 0 {
		maxTop = 0
	}
	if c.scrollTop > maxTop {
		c.scrollTop = maxTop
	}
	if c.scrollTop < 0 {
		c.scrollTop = 0
	}
}
