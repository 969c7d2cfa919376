// Package window holds the pure row-window math: the registry of expanded
// row heights, the scroll-offset resolver and the row-limit calculator.
// Nothing in this package keeps hidden state or schedules work.
package window
