// Package pumpfun knows the on-chain layout of the Pump.fun bonding curve
// program: program and PDA addresses, account decoding, and the create and
// buy instructions used to launch a token with its first purchase.
//
// The package never signs or submits anything. Callers assemble the returned
// instructions into a transaction and hand it to whoever holds the keys.
package pumpfun
