// Package commands defines the license-issuer CLI.
//
// Commands
//
//   - keygen    Generate the issuer signing key pair
//   - pubkey    Print the embeddable verification key
//   - generate  Issue a signed license for an installation
//
// The signing key never leaves the administrator's machine. Licenses
// are relayed to users out-of-band and pasted into the application's
// activation form.
package commands
