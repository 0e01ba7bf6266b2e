// Package zadarma adapts the Zadarma REST API (PBX call statistics, direct
// numbers, SIP accounts, balance) to the providers contract.
//
// Every request is signed: with Q the sorted query string and M the API method
// path, the Authorization header is `key:base64(hex(hmac_sha1(secret, M+Q+md5hex(Q))))`.
package zadarma
