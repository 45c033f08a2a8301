package jit

/*
#include <stdio.h>

extern double goPrintd(double x);

static double kaleidoscopePrintd(double x) {
	return goPrintd(x);
}

static double kaleidoscopePutchard(double x) {
	putchar((int)x);
	return x;
}

// MCJIT's AddGlobalMapping wants a raw function address, not a cgo
// func value (which Go's unsafe.Pointer rules won't convert directly
// anyway), so the address is captured once here as a void*.
static void *kaleidoscopePrintdAddr = (void *)kaleidoscopePrintd;
static void *kaleidoscopePutchardAddr = (void *)kaleidoscopePutchard;
*/
import "C"

import (
	"fmt"
	"strconv"
	"unsafe"

	"tinygo.org/x/go-llvm"
)

//export goPrintd
func goPrintd(x C.double) C.double {
	fmt.Printf("> %s <\n", strconv.FormatFloat(float64(x), 'g', -1, 64))
	return x
}

// registerIntrinsics pre-registers the printd and putchard host
// intrinsics as native process symbols, before any module is ever
// promoted, the way the original jitter registers them with
// `add_symbol` ahead of its first `close_current_module` call. printd
// prints its argument using the shortest decimal representation that
// round-trips (so printd(42) prints "> 42 <", not "> 42.000000 <")
// and returns it unchanged; putchard writes one byte and returns its
// argument unchanged. Both exist so Kaleidoscope programs have a way
// to produce observable output without the language having any I/O
// syntax of its own.
func registerIntrinsics() {
	if intrinsicsRegistered {
		return
	}
	llvm.AddSymbol("printd", unsafe.Pointer(C.kaleidoscopePrintdAddr))
	llvm.AddSymbol("putchard", unsafe.Pointer(C.kaleidoscopePutchardAddr))
	intrinsicsRegistered = true
}

var intrinsicsRegistered bool
