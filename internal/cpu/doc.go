// Package cpu reports how many logical processors the process may use and
// lets pool workers lock themselves to an OS thread pinned to one core.
package cpu
