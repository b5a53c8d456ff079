package igcorex

const buildVersion = "0.1.0"
