// Package notice stores campus notices. Faculty and administrators publish them;
// everyone can read them. Each notice carries a priority of low, medium or high.
package notice
