package internal

// Version is the ankify release version
const Version = "0.3.0"
