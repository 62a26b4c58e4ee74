// Package license implements offline license verification for the
// GlowSuite applications. A license is a signed JSON artifact binding a
// premium entitlement to one installation identity; verification is
// resolved entirely against on-device state plus an embedded Issuer
// verification key, with no license server.
//
// # Verification Flow
//
// Verify runs these checks in order, each failing closed to a plain
// boolean false:
//
//  1. Load the stored license blob; absent means unlicensed
//  2. Parse the envelope and license data; malformed means unlicensed
//  3. Check expiry (a license expiring exactly now is expired)
//  4. Verify the Issuer's ECDSA P-256 signature over the license data
//     bound to this device's exported public key
//  5. Compare the license's install id with this device's install id
//
// Only environment failures (inaccessible storage, broken key store)
// surface as errors; every verification failure is indistinguishable
// from the outside to avoid leaking which check rejected the license.
//
// # Issuance
//
// The Issuer holds a private signing key and runs exclusively in the
// admin console tool. The user relays their install id and public key
// JWK out-of-band, pastes back the returned artifact, and Activate
// verifies it in memory before persisting.
package license
