// Package audio plays synthesized speech through oto/v3 and holds the
// PCM helpers engines use to bring their output to the device format:
// signed 16-bit little endian mono at the player's sample rate.
package audio
