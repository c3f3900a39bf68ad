//go:build windows

package capi

import (
	"golang.org/x/sys/windows"
)

func openLibrary(path string) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(handle), nil
}

func closeLibrary(handle uintptr) {
	if handle != 0 {
		_ = windows.FreeLibrary(windows.Handle(handle))
	}
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func bytePtrToString(p *byte) string { return windows.BytePtrToString(p) }
