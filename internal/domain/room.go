package domain

type RoomName string

// MainRoom always exists; every connection starts there.
const MainRoom RoomName = "main"
