package ir

// Version is the withdef module version.
const Version = "0.1.0"
