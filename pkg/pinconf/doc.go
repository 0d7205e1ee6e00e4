// Package pinconf reads pin configuration files and names socket bits.
//
// A configuration is usually a CUPL source. Only two statements matter:
//
//	DEVICE G22V10;
//	PIN 14 = !CS;
//
// DEVICE selects the footprint used to map pin numbers to socket bits and
// PIN names a pin, with ! marking it active low. Everything else is
// skipped. Pins without a name print as P<num>.
package pinconf
