// Package transform implements the keystream transform used by the asset pipeline.
//
// A short key is extended to the length of a buffer by repetition and every byte
// is shifted, modulo 256, by its keystream byte plus the round index, once per
// round. Decryption subtracts the same quantities. The transform is reversible
// and deterministic but it is not a secure cipher: the keystream repeats, there
// is no diffusion and nothing authenticates the output.
//
// The package does not touch the filesystem or the network; callers hand it
// byte buffers or streams and get transformed ones back.
package transform
