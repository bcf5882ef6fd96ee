package render

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The handful of D3D11/DXGI COM interfaces this package calls through,
// expressed the way gioui.org's internal D3D11 backend does it: each
// interface is a Go struct whose first field is a pointer to its
// vtable (an array of function pointers in COM's fixed ABI order),
// and each method is a thin wrapper that calls through that vtable
// via syscall.Syscall. There is no cgo and no vendored C headers —
// just the documented vtable layout and GUIDs.

type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

type iUnknownVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
}

type iUnknown struct {
	vtbl *iUnknownVtbl
}

func comRelease(obj unsafe.Pointer, fn uintptr) {
	if obj == nil {
		return
	}
	syscall.Syscall(fn, 1, uintptr(obj), 0, 0)
}

func comQueryInterface(obj unsafe.Pointer, fn uintptr, iid *comGUID) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	hr, _, _ := syscall.Syscall(fn, 3, uintptr(obj), uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if hr != 0 {
		return nil, fmt.Errorf("render: QueryInterface failed: hresult=0x%x", uint32(hr))
	}
	return out, nil
}

// id3d11DeviceVtbl is truncated to the methods this package calls;
// every COM interface's real vtable is longer, but earlier slots must
// still line up, so unused methods are kept as explicit padding.
type id3d11DeviceVtbl struct {
	iUnknownVtbl
	_ [25]uintptr // CreateBuffer .. CreateDeferredContext, unused here
	OpenSharedResource uintptr
}

type id3d11Device struct {
	vtbl *id3d11DeviceVtbl
}

var iidID3D11Texture2D = comGUID{0x6f15aaf2, 0xd208, 0x4e89, [8]byte{0x9a, 0xb4, 0x48, 0x95, 0x35, 0xd3, 0x4f, 0x9c}}

// openSharedTexture imports a texture shared from another process by
// its NT handle (spec §4.D/§4.E: the writer's texture pool is shared
// via NT handles, duplicated per-client).
func (d *id3d11Device) openSharedTexture(h windows.Handle) (*id3d11Texture2D, error) {
	var out unsafe.Pointer
	hr, _, _ := syscall.Syscall6(d.vtbl.OpenSharedResource, 4,
		uintptr(unsafe.Pointer(d)), uintptr(h), uintptr(unsafe.Pointer(&iidID3D11Texture2D)), uintptr(unsafe.Pointer(&out)),
		0, 0)
	if hr != 0 {
		return nil, fmt.Errorf("render: OpenSharedResource failed: hresult=0x%x", uint32(hr))
	}
	return (*id3d11Texture2D)(out), nil
}

type id3d11Texture2DVtbl struct {
	iUnknownVtbl
	_ [10]uintptr
}

type id3d11Texture2D struct {
	vtbl *id3d11Texture2DVtbl
}

func (t *id3d11Texture2D) release() {
	comRelease(unsafe.Pointer(t), t.vtbl.Release)
}

// id3d11DeviceContextVtbl covers just CopyResource, used by the SHM
// reader to blit an imported frame into the client's own texture
// (spec §4.E step 2).
type id3d11DeviceContextVtbl struct {
	iUnknownVtbl
	_            [44]uintptr // ID3D11DeviceChild's 4 methods, then VSSetConstantBuffers .. CopySubresourceRegion
	CopyResource uintptr
}

type id3d11DeviceContext struct {
	vtbl *id3d11DeviceContextVtbl
}

func (c *id3d11DeviceContext) copyResource(dst, src *id3d11Texture2D) {
	syscall.Syscall(c.vtbl.CopyResource, 3, uintptr(unsafe.Pointer(c)), uintptr(unsafe.Pointer(dst)), uintptr(unsafe.Pointer(src)))
}

// id3d11FenceVtbl wraps ID3D11Fence's CreateSharedHandle/
// GetCompletedValue/SetEventOnCompletion (Signal lives on
// ID3D11DeviceContext4), the cross-process timeline fence spec
// §4.D/§4.E use to order a reader's copy after the writer's render
// (and vice versa for reuse).
type id3d11FenceVtbl struct {
	iUnknownVtbl
	_                    [4]uintptr // GetDevice, GetPrivateData, SetPrivateData, SetPrivateDataInterface
	CreateSharedHandle   uintptr
	GetCompletedValue    uintptr
	SetEventOnCompletion uintptr
}

type id3d11Fence struct {
	vtbl *id3d11FenceVtbl
}

func (f *id3d11Fence) completedValue() uint64 {
	v, _, _ := syscall.Syscall(f.vtbl.GetCompletedValue, 1, uintptr(unsafe.Pointer(f)), 0, 0)
	return uint64(v)
}

func (f *id3d11Fence) release() {
	comRelease(unsafe.Pointer(f), f.vtbl.Release)
}
