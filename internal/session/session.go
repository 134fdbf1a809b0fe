// Package session keeps a Redis registry of live web widget sessions so that
// operators can see what each server is doing. It records status only; message
// text is never stored.
package session
