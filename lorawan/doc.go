/*

Package lorawan provides tools to read and write LoRaWAN messages.

It implements the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler
interfaces for the MHDR/FHDR/MACPayload/PHYPayload frame structures and
MAC command set that the mac package builds, encrypts, decrypts and
authenticates.

*/
package lorawan
